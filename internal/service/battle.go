package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"chain-arena/internal/battle"
	"chain-arena/internal/cache"
	"chain-arena/internal/constants"
	"chain-arena/internal/domain"
	"chain-arena/internal/ratelimit"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidAddress = errors.New("invalid address or ENS name")
	ErrInvalidNonce   = errors.New("invalid nonce")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	ensPattern     = regexp.MustCompile(`^[a-z0-9-]+(\.[a-z0-9-]+)*\.eth$`)
	noncePattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// CharacterProvider supplies externally derived character sheets.
type CharacterProvider interface {
	GetCharacter(ctx context.Context, address string) (*domain.CharacterSheet, error)
}

// BattleService runs the battle pipeline: validate, throttle, fetch both
// sheets, simulate, cache, and record the outcome in the background.
type BattleService struct {
	provider   CharacterProvider
	characters *cache.Cache[domain.CharacterSheet]
	battles    *cache.Cache[domain.BattleResult]
	limiter    *ratelimit.Limiter
	recorder   *RankingService
	logger     zerolog.Logger
}

func NewBattleService(
	provider CharacterProvider,
	caches *Caches,
	limiter *ratelimit.Limiter,
	recorder *RankingService,
	logger zerolog.Logger,
) *BattleService {
	return &BattleService{
		provider:   provider,
		characters: caches.Characters,
		battles:    caches.Battles,
		limiter:    limiter,
		recorder:   recorder,
		logger:     logger,
	}
}

// BattleOutcome is the pipeline result plus whether it was served from cache.
type BattleOutcome struct {
	Result  *domain.BattleResult
	ResetAt int64
	Cached  bool
}

// Battle simulates (or replays from cache) a fight between two addresses.
// An empty nonce generates a fresh one so the result is replayable by URL.
func (s *BattleService) Battle(ctx context.Context, addrA, addrB, nonce, clientIP string) (*BattleOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if !validAddress(addrA) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addrA)
	}
	if !validAddress(addrB) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addrB)
	}

	rl := s.limiter.Check(ctx, clientIP)
	if !rl.Allowed {
		return &BattleOutcome{ResetAt: rl.ResetAt.UnixMilli()}, ErrRateLimited
	}

	if nonce == "" {
		var err error
		nonce, err = gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nonce: %w", err)
		}
	} else if !noncePattern.MatchString(nonce) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNonce, nonce)
	}

	key := fmt.Sprintf("%s:%s:%s", addrA, addrB, nonce)
	if cached, ok := s.battles.Get(ctx, key); ok {
		s.logger.Debug().Str("key", key).Msg("returning cached battle")
		return &BattleOutcome{Result: &cached, Cached: true}, nil
	}

	var sheetA, sheetB *domain.CharacterSheet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sheetA, err = s.character(gctx, addrA)
		return err
	})
	g.Go(func() error {
		var err error
		sheetB, err = s.character(gctx, addrB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result, err := battle.Simulate(sheetA.Fighter(), sheetB.Fighter(), nonce)
	if err != nil {
		return nil, err
	}

	s.battles.Set(ctx, key, *result)

	// never block or fail the battle response on ranking
	go s.recorder.RecordBattle(context.WithoutCancel(ctx), result)

	s.logger.Info().
		Str("addr_a", sheetA.Address).
		Str("addr_b", sheetB.Address).
		Str("nonce", nonce).
		Int("winner", result.Winner).
		Int("turns", len(result.Turns)).
		Msg("battle simulated")

	return &BattleOutcome{Result: result}, nil
}

func (s *BattleService) character(ctx context.Context, address string) (*domain.CharacterSheet, error) {
	if sheet, ok := s.characters.Get(ctx, address); ok {
		return &sheet, nil
	}
	sheet, err := s.provider.GetCharacter(ctx, address)
	if err != nil {
		return nil, err
	}
	s.characters.Set(ctx, address, *sheet)
	return sheet, nil
}

// CacheReport exposes per-cache stats for health reporting.
func (s *BattleService) CacheReport() map[string]domain.CacheStats {
	report := make(map[string]domain.CacheStats, 2)
	size, hitRate := s.characters.Stats()
	report["characters"] = domain.CacheStats{Size: size, HitRate: hitRate}
	size, hitRate = s.battles.Stats()
	report["battles"] = domain.CacheStats{Size: size, HitRate: hitRate}
	return report
}

func validAddress(addr string) bool {
	return addressPattern.MatchString(addr) || ensPattern.MatchString(strings.ToLower(addr))
}
