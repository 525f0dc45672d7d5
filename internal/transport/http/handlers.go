package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatnuff/internal/archive"
)

// DefaultReplayCount is the number of messages replayed when n is omitted.
const DefaultReplayCount = 10

// ArchiveHandlers provides HTTP handlers for status and replay endpoints.
type ArchiveHandlers struct {
	archive *archive.Archive
	log     *zerolog.Logger
}

// NewArchiveHandlers creates a new handlers instance.
func NewArchiveHandlers(a *archive.Archive, logger *zerolog.Logger) *ArchiveHandlers {
	return &ArchiveHandlers{
		archive: a,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the body of the status endpoints.
type StatusResponse struct {
	Status  string            `json:"status"`
	Archive map[string]string `json:"archive,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ReplayResponse lists messages oldest first.
type ReplayResponse struct {
	ChatID   int64             `json:"chat_id"`
	Messages []MessageResponse `json:"messages"`
}

// Health reports process liveness.
// GET /status
func (h *ArchiveHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "healthy"})
}

// ArchiveStatus pings the backend and reports its details.
// GET /status/archive
func (h *ArchiveHandlers) ArchiveStatus(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.archive.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("archive ping failed")
		c.JSON(http.StatusServiceUnavailable, StatusResponse{Status: "unavailable", Error: "archive backend unreachable"})
		return
	}

	info, err := h.archive.Describe(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to describe archive backend")
		info = nil
	}
	c.JSON(http.StatusOK, StatusResponse{Status: "ok", Archive: info})
}

// Replay returns the latest n messages of a chat in chronological order.
// GET /chats/:id/messages?n=10
func (h *ArchiveHandlers) Replay(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid chat id"})
		return
	}

	n := DefaultReplayCount
	if raw, ok := c.GetQuery("n"); ok {
		n, err = strconv.Atoi(raw)
		if err != nil || n < 1 || n > archive.MaxCapacity {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "n must be between 1 and " + strconv.Itoa(archive.MaxCapacity)})
			return
		}
	}

	ctx := c.Request.Context()
	ok, err := h.archive.Exists(ctx, chatID)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to check chat history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no messages archived for chat"})
		return
	}

	msgs, err := h.archive.Latest(ctx, chatID, n)
	if err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to read chat history")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, ReplayResponse{
		ChatID:   chatID,
		Messages: toMessageResponses(archive.Chronological(msgs), h.log),
	})
}
