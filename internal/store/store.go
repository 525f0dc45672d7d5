//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

// Package store declares the key-value contract the message archive is built on.
//
// A backend keeps, per key, an ordered list of opaque values with the newest value
// at index 0. Implementations live in the redis, sqlite and badger subpackages.
package store

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrConnectionFailure reports an unreachable backend or failed transport/auth setup.
	ErrConnectionFailure = errors.New("archive backend connection failed")
	// ErrConnectionTimeout reports a connection attempt that exceeded its timeout.
	ErrConnectionTimeout = errors.New("archive backend connection timed out")
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("archive backend closed")
)

// Backend is the list store used by the archive.
type Backend interface {
	// PushFrontTrim prepends value to the list at key, keeps only the first keep
	// entries and returns the resulting length. The three steps run as one atomic
	// unit with respect to other writers of the same key.
	PushFrontTrim(ctx context.Context, key string, value []byte, keep int) (int64, error)

	// Range returns the entries between start and stop inclusive, counted from the
	// head. A negative stop reads through the tail. A missing key yields no entries.
	Range(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	// Length returns the number of entries stored at key.
	Length(ctx context.Context, key string) (int64, error)

	// Exists reports whether key holds at least one entry.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Describer is implemented by backends that can report server details for operators.
type Describer interface {
	Describe(ctx context.Context) (map[string]string, error)
}

// ClassifyDialError maps a connection error onto ErrConnectionTimeout or
// ErrConnectionFailure. The returned error wraps both the class and the cause.
func ClassifyDialError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectionTimeout) || errors.Is(err, ErrConnectionFailure) {
		return err
	}
	if IsTimeout(err) {
		return errors.Join(ErrConnectionTimeout, err)
	}
	return errors.Join(ErrConnectionFailure, err)
}

// IsTimeout reports whether err was caused by a deadline or a network timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrConnectionTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
