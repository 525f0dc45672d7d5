// Package ingest turns incoming chat events into archived messages.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/log"
	"github.com/vovakirdan/chatnuff/internal/spoiler"
)

// EntitySpoiler is the entity type that marks hidden text.
const EntitySpoiler = "spoiler"

// User is the author of an event.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
}

// Entity annotates a span of Event.Text. Offset and Length count UTF-16 code units.
type Entity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

// Event is a platform-neutral incoming chat message.
type Event struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	From      User      `json:"from"`
	Text      string    `json:"text"`
	Entities  []Entity  `json:"entities,omitempty"`
	Date      time.Time `json:"date"`
}

// OwnerName returns "First Last", or just the first name when the last name is empty.
func OwnerName(u User) string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// BuildMessage converts ev into an archive message. Spoiler entities are wrapped
// into the content with spoiler markers.
func BuildMessage(ev Event) (archive.Message, error) {
	msg := archive.Message{
		MessageID: ev.MessageID,
		Content:   ev.Text,
		OwnerID:   ev.From.ID,
		OwnerName: OwnerName(ev.From),
		CreatedAt: ev.Date.UTC().Format(time.RFC3339),
	}

	spoilers := lo.Filter(ev.Entities, func(e Entity, _ int) bool {
		return strings.EqualFold(e.Type, EntitySpoiler)
	})
	if len(spoilers) == 0 {
		return msg, nil
	}

	units := lo.Map(spoilers, func(e Entity, _ int) spoiler.Range {
		return spoiler.Range{Start: e.Offset, Length: e.Length}
	})
	ranges, err := spoiler.FromUTF16(ev.Text, units)
	if err != nil {
		return archive.Message{}, fmt.Errorf("message %d: %w", ev.MessageID, err)
	}
	content, err := spoiler.Wrap(ev.Text, ranges)
	if err != nil {
		return archive.Message{}, fmt.Errorf("message %d: %w", ev.MessageID, err)
	}

	msg.Content = content
	msg.HasSpoilers = true
	return msg, nil
}

// Ingestor stores events in an archive.
type Ingestor struct {
	archive *archive.Archive
	logger  *zerolog.Logger
}

// New creates an Ingestor.
func New(a *archive.Archive, logger *zerolog.Logger) *Ingestor {
	return &Ingestor{archive: a, logger: log.OrNop(logger)}
}

// Handle archives ev and returns the conversation history length.
func (i *Ingestor) Handle(ctx context.Context, ev Event) (int, error) {
	msg, err := BuildMessage(ev)
	if err != nil {
		return 0, err
	}

	n, err := i.archive.Store(ctx, ev.ChatID, msg)
	if err != nil {
		return 0, err
	}

	i.logger.Info().
		Int64("chat_id", ev.ChatID).
		Int64("message_id", ev.MessageID).
		Bool("has_spoilers", msg.HasSpoilers).
		Int("stored", n).
		Msg("message ingested")
	return n, nil
}
