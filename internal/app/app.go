package app

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/config"
	"github.com/vovakirdan/chatnuff/internal/log"
	transporthttp "github.com/vovakirdan/chatnuff/internal/transport/http"
)

// ErrArchiveUnavailable is returned by New when the archive backend cannot be reached.
var ErrArchiveUnavailable = errors.New("archive unavailable")

// App wires together the archive and the HTTP transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	archive         *archive.Archive
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	logger = log.OrNop(logger)

	a, ok := archive.Connect(ctx, cfg.Archive, logger)
	if !ok {
		return nil, fmt.Errorf("init archive (%s): %w", cfg.Archive.Backend, ErrArchiveUnavailable)
	}

	return &App{
		server:          transporthttp.NewServer(a, cfg, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		archive:         a,
		log:             logger,
	}, nil
}

// Archive returns the connected archive.
func (a *App) Archive() *archive.Archive {
	return a.archive
}

// Handler returns the HTTP handler.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the archive backend.
func (a *App) cleanup() {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close archive")
		} else {
			a.log.Info().Msg("archive closed")
		}
	}
}
