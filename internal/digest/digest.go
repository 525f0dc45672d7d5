// Package digest summarizes archived conversations through a pluggable text generator
// while keeping spoiler ranges intact across the generation step.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/chatnuff/internal/archive"
	"github.com/vovakirdan/chatnuff/internal/log"
	"github.com/vovakirdan/chatnuff/internal/spoiler"
)

var (
	// ErrNoMessages is returned when the conversation has no archived history.
	ErrNoMessages = errors.New("no messages archived for chat")
	// ErrGeneration wraps generator failures.
	ErrGeneration = errors.New("summary generation failed")
)

// Style selects the summary layout.
type Style string

const (
	Paragraph Style = "paragraph"
	Bullets   Style = "bullets"
)

// ParseStyle accepts "paragraph" or "bullets"; empty means Paragraph.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", Paragraph:
		return Paragraph, nil
	case Bullets:
		return Bullets, nil
	default:
		return "", fmt.Errorf("unknown summary style %q", s)
	}
}

// Request is what a Generator receives.
type Request struct {
	Transcript string
	Style      Style
	// HasSpoilers tells the generator that the transcript carries spoiler markers
	// which must be kept around hidden content in the output.
	HasSpoilers bool
}

// Generator produces summary text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Summary is a generated summary with spoiler ranges over Text.
type Summary struct {
	Text     string          `json:"text"`
	Spoilers []spoiler.Range `json:"spoilers"`
}

// Transcript renders chronological messages as "owner: content" items joined by ";".
func Transcript(msgs []archive.Message) string {
	lines := lo.Map(msgs, func(m archive.Message, _ int) string {
		return m.OwnerName + ": " + m.Content
	})
	return strings.Join(lines, ";")
}

// FormatBullets puts every non-blank line of text in its own paragraph.
func FormatBullets(text string) string {
	lines := lo.Filter(strings.Split(strings.TrimSpace(text), "\n"), func(line string, _ int) bool {
		return strings.TrimSpace(line) != ""
	})
	return strings.Join(lines, "\n\n")
}

// Summarizer reads an archive and summarizes conversations.
type Summarizer struct {
	archive   *archive.Archive
	generator Generator
	logger    *zerolog.Logger
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(a *archive.Archive, g Generator, logger *zerolog.Logger) *Summarizer {
	return &Summarizer{archive: a, generator: g, logger: log.OrNop(logger)}
}

// Summarize summarizes the latest n messages of the conversation. A non-positive n
// uses the archive's default read size; n is capped at archive.MaxCapacity.
func (s *Summarizer) Summarize(ctx context.Context, conversationID int64, n int, style Style) (Summary, error) {
	ok, err := s.archive.Exists(ctx, conversationID)
	if err != nil {
		return Summary{}, err
	}
	if !ok {
		return Summary{}, fmt.Errorf("chat %d: %w", conversationID, ErrNoMessages)
	}

	if n <= 0 {
		n = s.archive.DefaultRead()
	}
	n = min(n, archive.MaxCapacity)

	newest, err := s.archive.Latest(ctx, conversationID, n)
	if err != nil {
		return Summary{}, err
	}
	msgs := archive.Chronological(newest)
	hasSpoilers := lo.SomeBy(msgs, func(m archive.Message) bool { return m.HasSpoilers })

	text, err := s.generator.Generate(ctx, Request{
		Transcript:  Transcript(msgs),
		Style:       style,
		HasSpoilers: hasSpoilers,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if style == Bullets {
		text = FormatBullets(text)
	}

	s.logger.Info().
		Int64("chat_id", conversationID).
		Int("messages", len(msgs)).
		Bool("has_spoilers", hasSpoilers).
		Str("style", string(style)).
		Msg("summary generated")

	if !hasSpoilers {
		return Summary{Text: text, Spoilers: []spoiler.Range{}}, nil
	}

	plain, ranges, err := spoiler.Unwrap(text)
	if err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", conversationID).Msg("generated summary has unbalanced spoiler markers")
	}
	return Summary{Text: plain, Spoilers: ranges}, nil
}
