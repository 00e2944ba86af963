package fx

import (
	"database/sql"

	"chain-arena/internal/api"
	"chain-arena/internal/cache"
	"chain-arena/internal/config"
	"chain-arena/internal/constants"
	"chain-arena/internal/database"
	"chain-arena/internal/logger"
	"chain-arena/internal/ratelimit"
	"chain-arena/internal/repository"
	"chain-arena/internal/server"
	"chain-arena/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// ProvideKVStore returns nil when no database is configured so every
// dependent degrades to its in-memory path.
func ProvideKVStore(db *sql.DB, log zerolog.Logger) *repository.KVStore {
	if db == nil {
		return nil
	}
	return repository.NewKVStore(db, log)
}

func ProvideKV(store *repository.KVStore) cache.KV {
	if store == nil {
		return nil
	}
	return store
}

func ProvideCounter(store *repository.KVStore) ratelimit.Counter {
	if store == nil {
		return nil
	}
	return store
}

func ProvideLimiter(counter ratelimit.Counter, log zerolog.Logger) *ratelimit.Limiter {
	return ratelimit.New(counter, constants.RateLimitWindow, constants.RateLimitMax, log)
}

func ProvideCharacterProvider(client *api.CharacterClient) service.CharacterProvider {
	return client
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// stores
	fx.Provide(ProvideKVStore),
	fx.Provide(ProvideKV),
	fx.Provide(ProvideCounter),
	fx.Provide(repository.NewRankingStore),
	// engine plumbing
	fx.Provide(service.NewCaches),
	fx.Provide(ProvideLimiter),
	// external character service
	fx.Provide(api.NewCharacterClient),
	fx.Provide(ProvideCharacterProvider),
	// svc
	fx.Provide(service.NewRankingService),
	fx.Provide(service.NewBattleService),
	// server
	fx.Provide(server.NewArenaServer),
)
