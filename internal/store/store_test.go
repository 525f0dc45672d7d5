package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyDialError(t *testing.T) {
	refused := errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

	tests := []struct {
		name    string
		err     error
		want    error
		notWant error
	}{
		{name: "deadline", err: fmt.Errorf("ping: %w", context.DeadlineExceeded), want: ErrConnectionTimeout, notWant: ErrConnectionFailure},
		{name: "net timeout", err: timeoutErr{}, want: ErrConnectionTimeout, notWant: ErrConnectionFailure},
		{name: "refused", err: refused, want: ErrConnectionFailure, notWant: ErrConnectionTimeout},
		{name: "already classified", err: fmt.Errorf("dial: %w", ErrConnectionTimeout), want: ErrConnectionTimeout, notWant: ErrConnectionFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyDialError(tt.err)
			require.ErrorIs(t, got, tt.want)
			require.NotErrorIs(t, got, tt.notWant)
			require.ErrorIs(t, got, tt.err)
		})
	}

	require.NoError(t, ClassifyDialError(nil))
}
