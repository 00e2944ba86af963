package service

import (
	"chain-arena/internal/cache"
	"chain-arena/internal/constants"
	"chain-arena/internal/domain"

	"github.com/rs/zerolog"
)

// Caches bundles the process-wide cache instances. Constructed once and
// injected, never reached through package-level state, so lifetime and
// test-reset stay explicit.
type Caches struct {
	Characters *cache.Cache[domain.CharacterSheet]
	Battles    *cache.Cache[domain.BattleResult]
}

func NewCaches(kv cache.KV, logger zerolog.Logger) *Caches {
	return &Caches{
		Characters: cache.New[domain.CharacterSheet](
			"characters", kv,
			constants.CharacterCacheTTL, constants.CharacterSchemaVersion,
			constants.CharacterCacheSize, constants.CacheEvictDivisor, logger),
		Battles: cache.New[domain.BattleResult](
			"battles", kv,
			constants.BattleCacheTTL, constants.BattleSchemaVersion,
			constants.BattleCacheSize, constants.CacheEvictDivisor, logger),
	}
}
