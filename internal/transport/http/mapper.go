package http

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/spoiler"
)

// MessageResponse is an archived message with spoiler markers decoded into ranges.
type MessageResponse struct {
	MessageID int64           `json:"message_id"`
	OwnerID   int64           `json:"owner_id"`
	OwnerName string          `json:"owner_name"`
	CreatedAt string          `json:"created_at"`
	Text      string          `json:"text"`
	Spoilers  []spoiler.Range `json:"spoilers"`
}

func toMessageResponse(m archive.Message, logger *zerolog.Logger) MessageResponse {
	resp := MessageResponse{
		MessageID: m.MessageID,
		OwnerID:   m.OwnerID,
		OwnerName: m.OwnerName,
		CreatedAt: m.CreatedAt,
		Text:      m.Content,
		Spoilers:  []spoiler.Range{},
	}
	if !m.HasSpoilers {
		return resp
	}

	text, ranges, err := spoiler.Unwrap(m.Content)
	if err != nil {
		logger.Warn().Err(err).Int64("message_id", m.MessageID).Msg("archived message has unbalanced spoiler markers")
	}
	resp.Text = text
	resp.Spoilers = ranges
	return resp
}

func toMessageResponses(msgs []archive.Message, logger *zerolog.Logger) []MessageResponse {
	return lo.Map(msgs, func(m archive.Message, _ int) MessageResponse {
		return toMessageResponse(m, logger)
	})
}
