package battle

import (
	"hash/fnv"
	"math/rand"
)

// seedFromNonce maps a nonce string to a PRNG seed via FNV-1a. The hash is
// stable across platforms, so one nonce always yields one roll sequence.
func seedFromNonce(nonce string) int64 {
	h := fnv.New64a()
	h.Write([]byte(nonce))
	return int64(h.Sum64())
}

func newRNG(nonce string) *rand.Rand {
	return rand.New(rand.NewSource(seedFromNonce(nonce)))
}
