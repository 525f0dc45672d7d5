package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatnuff/internal/config"
	"github.com/vovakirdan/chatnuff/internal/log"
	"github.com/vovakirdan/chatnuff/internal/store"
	badgerstore "github.com/vovakirdan/chatnuff/internal/store/badger"
	redisstore "github.com/vovakirdan/chatnuff/internal/store/redis"
	sqlitestore "github.com/vovakirdan/chatnuff/internal/store/sqlite"
)

// Dial opens the backend selected by cfg and returns an Archive configured from it.
// Connection errors wrap store.ErrConnectionTimeout or store.ErrConnectionFailure.
func Dial(ctx context.Context, cfg config.Archive, opts ...Option) (*Archive, error) {
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	base := []Option{WithKeyPrefix(cfg.KeyPrefix)}
	if cfg.Capacity > 0 {
		base = append(base, WithCapacity(cfg.Capacity))
	}
	if cfg.DefaultRead > 0 {
		base = append(base, WithDefaultRead(cfg.DefaultRead))
	}
	return New(backend, append(base, opts...)...), nil
}

func openBackend(ctx context.Context, cfg config.Archive) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendRedis, "":
		s, err := redisstore.Dial(ctx, redisstore.Options{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			DB:       cfg.Redis.DB,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			UseTLS:   cfg.Redis.UseTLS,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendSQLite:
		s, err := sqlitestore.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendBadger:
		s, err := badgerstore.Open(badgerstore.Options{Dir: cfg.Badger.Dir, InMemory: cfg.Badger.InMemory})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", store.ErrConnectionFailure, cfg.Backend)
	}
}

// Connect dials the archive and reports success as a boolean. Failures are logged,
// with a distinct message for timeouts, and never returned.
func Connect(ctx context.Context, cfg config.Archive, logger *zerolog.Logger, opts ...Option) (*Archive, bool) {
	logger = log.OrNop(logger)

	a, err := Dial(ctx, cfg, append([]Option{WithLogger(logger)}, opts...)...)
	if err != nil {
		logConnectError(logger, cfg, err)
		return nil, false
	}
	logger.Info().Str("backend", backendName(cfg)).Int("capacity", a.Capacity()).Msg("archive connected")
	return a, true
}

// logConnectError reports a failed dial. The timeout field is only set for redis,
// the one backend with a configured connect timeout.
func logConnectError(logger *zerolog.Logger, cfg config.Archive, err error) {
	backend := backendName(cfg)
	if !errors.Is(err, store.ErrConnectionTimeout) {
		logger.Error().Err(err).Str("backend", backend).Msg("archive connection failed")
		return
	}
	event := logger.Error().Err(err).Str("backend", backend)
	if backend == config.BackendRedis {
		event = event.Dur("timeout", cfg.Redis.Timeout)
	}
	event.Msg("archive connection timed out")
}

func backendName(cfg config.Archive) string {
	if cfg.Backend == "" {
		return config.BackendRedis
	}
	return cfg.Backend
}
