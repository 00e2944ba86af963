package constants

import "time"

const (
	CharacterCacheTTL = 24 * time.Hour
	BattleCacheTTL    = 24 * time.Hour

	CharacterCacheSize = 1000
	BattleCacheSize    = 500

	// Fraction of the cap evicted in one batch when a cache is full.
	CacheEvictDivisor = 10

	// Bumped whenever the cached payload shape changes; stale-versioned
	// entries read as misses and age out of the durable tier via TTL.
	CharacterSchemaVersion = 2
	BattleSchemaVersion    = 1
)

const (
	RateLimitWindow = 60 * time.Second
	RateLimitMax    = 5
)

const (
	MaxBattleTurns = 40
)

const (
	SeasonDuration       = 90 * 24 * time.Hour
	LeaderboardCap       = 500
	BattleRankingFloor   = 5
	BattleHistoryCap     = 200
	DefaultPageLimit     = 50
	MaxPageLimit         = 100
	DefaultRefreshPeriod = 30 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)
