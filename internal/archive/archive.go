// Package archive keeps a bounded, newest-first message history per conversation.
package archive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatnuff/internal/log"
	"github.com/vovakirdan/chatnuff/internal/store"
)

const (
	// MaxCapacity is the largest number of messages kept per conversation.
	MaxCapacity = 200
	// DefaultReadCount is the read size used when callers do not pick one.
	DefaultReadCount = 100
)

// ErrDeserialization reports a stored entry that is not a valid message record.
var ErrDeserialization = errors.New("archive record cannot be decoded")

// Archive stores messages through a store.Backend. It is safe for concurrent use.
type Archive struct {
	backend     store.Backend
	capacity    int
	defaultRead int
	prefix      string
	logger      *zerolog.Logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithCapacity sets the per-conversation capacity, clamped to [1, MaxCapacity].
func WithCapacity(n int) Option {
	return func(a *Archive) {
		a.capacity = min(max(n, 1), MaxCapacity)
	}
}

// WithDefaultRead sets the read size returned by DefaultRead, clamped to [1, MaxCapacity].
func WithDefaultRead(n int) Option {
	return func(a *Archive) {
		a.defaultRead = min(max(n, 1), MaxCapacity)
	}
}

// WithKeyPrefix namespaces backend keys. The default empty prefix keeps keys
// equal to the decimal conversation id.
func WithKeyPrefix(prefix string) Option {
	return func(a *Archive) {
		a.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *Archive) {
		a.logger = log.OrNop(logger)
	}
}

// New creates an Archive over backend.
func New(backend store.Backend, opts ...Option) *Archive {
	a := &Archive{
		backend:     backend,
		capacity:    MaxCapacity,
		defaultRead: DefaultReadCount,
		logger:      log.OrNop(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Capacity returns the per-conversation capacity.
func (a *Archive) Capacity() int {
	return a.capacity
}

// DefaultRead returns the configured default read size.
func (a *Archive) DefaultRead() int {
	return a.defaultRead
}

func (a *Archive) key(conversationID int64) string {
	return a.prefix + strconv.FormatInt(conversationID, 10)
}

// Store prepends msg to the conversation history, evicts the oldest entries past
// capacity and returns the resulting history length. Prepend, trim and count are
// one atomic step on the backend.
func (a *Archive) Store(ctx context.Context, conversationID int64, msg Message) (int, error) {
	data, err := encodeRecord(msg)
	if err != nil {
		return 0, err
	}

	n, err := a.backend.PushFrontTrim(ctx, a.key(conversationID), data, a.capacity)
	if err != nil {
		return 0, fmt.Errorf("store message %d in chat %d: %w", msg.MessageID, conversationID, err)
	}

	a.logger.Debug().
		Int64("chat_id", conversationID).
		Int64("message_id", msg.MessageID).
		Int64("stored", n).
		Msg("message archived")
	return int(n), nil
}

// Exists reports whether the conversation has any archived message.
func (a *Archive) Exists(ctx context.Context, conversationID int64) (bool, error) {
	ok, err := a.backend.Exists(ctx, a.key(conversationID))
	if err != nil {
		return false, fmt.Errorf("check chat %d: %w", conversationID, err)
	}
	return ok, nil
}

// Latest returns up to n messages of the conversation, newest first.
// n <= 0 returns an empty slice without querying the backend. An entry that
// cannot be decoded fails the whole call with ErrDeserialization.
func (a *Archive) Latest(ctx context.Context, conversationID int64, n int) ([]Message, error) {
	if n <= 0 {
		return []Message{}, nil
	}

	raw, err := a.backend.Range(ctx, a.key(conversationID), 0, int64(n-1))
	if err != nil {
		return nil, fmt.Errorf("read chat %d: %w", conversationID, err)
	}

	msgs := make([]Message, 0, len(raw))
	for i, data := range raw {
		msg, err := decodeRecord(data)
		if err != nil {
			a.logger.Warn().Err(err).Int64("chat_id", conversationID).Int("index", i).Msg("corrupt archive entry")
			return nil, fmt.Errorf("read chat %d entry %d: %w", conversationID, i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Chronological returns a copy of newest-first msgs in oldest-first order.
func Chronological(msgs []Message) []Message {
	out := slices.Clone(msgs)
	slices.Reverse(out)
	return out
}

// Ping checks backend liveness.
func (a *Archive) Ping(ctx context.Context) error {
	return a.backend.Ping(ctx)
}

// Describe returns backend details when the backend can report them, plus the archive capacity.
func (a *Archive) Describe(ctx context.Context) (map[string]string, error) {
	info := map[string]string{}
	if d, ok := a.backend.(store.Describer); ok {
		got, err := d.Describe(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe backend: %w", err)
		}
		for k, v := range got {
			info[k] = v
		}
	}
	info["capacity"] = strconv.Itoa(a.capacity)
	return info, nil
}

// Close releases the backend.
func (a *Archive) Close() error {
	return a.backend.Close()
}
