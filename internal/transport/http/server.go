package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/config"
	"github.com/vovakirdan/chatnuff/internal/log"
)

// NewServer builds the HTTP server with status and replay routes.
func NewServer(a *archive.Archive, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(a, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter returns the gin engine serving the archive endpoints.
func NewRouter(a *archive.Archive, logger *zerolog.Logger) *gin.Engine {
	logger = log.OrNop(logger)
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), RequestIDMiddleware(), LoggerMiddleware(logger))

	handlers := NewArchiveHandlers(a, logger)
	router.GET("/status", handlers.Health)
	router.GET("/status/archive", handlers.ArchiveStatus)

	chats := router.Group("/chats")
	chats.GET("/:id/messages", handlers.Replay)

	return router
}
