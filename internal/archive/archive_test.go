package archive

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vovakirdan/chatnuff/internal/store"
	badgerstore "github.com/vovakirdan/chatnuff/internal/store/badger"
	"github.com/vovakirdan/chatnuff/internal/store/mocks"
	redisstore "github.com/vovakirdan/chatnuff/internal/store/redis"
	sqlitestore "github.com/vovakirdan/chatnuff/internal/store/sqlite"
)

type backendCase struct {
	name string
	open func(t *testing.T) store.Backend
}

func backendCases() []backendCase {
	return []backendCase{
		{
			name: "redis",
			open: func(t *testing.T) store.Backend {
				mr := miniredis.RunT(t)
				return redisstore.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) store.Backend {
				s, err := sqlitestore.New(":memory:")
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "badger",
			open: func(t *testing.T) store.Backend {
				s, err := badgerstore.Open(badgerstore.Options{InMemory: true})
				require.NoError(t, err)
				return s
			},
		},
	}
}

// forEachBackend runs fn against a fresh archive on every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, a *Archive), opts ...Option) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			a := New(bc.open(t), opts...)
			t.Cleanup(func() { _ = a.Close() })
			fn(t, a)
		})
	}
}

func testMessage(id int64) Message {
	return Message{
		MessageID: id,
		Content:   fmt.Sprintf("message %d", id),
		OwnerID:   7,
		OwnerName: "Ann Lee",
		CreatedAt: "2024-05-01T10:00:00Z",
	}
}

func TestStoreEvictsPastCapacity(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a *Archive) {
		ctx := context.Background()
		for i := int64(1); i <= 101; i++ {
			n, err := a.Store(ctx, -1001, testMessage(i))
			require.NoError(t, err)
			require.Equal(t, int(min(i, 100)), n)
		}

		msgs, err := a.Latest(ctx, -1001, MaxCapacity)
		require.NoError(t, err)
		require.Len(t, msgs, 100)
		require.Equal(t, int64(101), msgs[0].MessageID)
		require.Equal(t, int64(2), msgs[99].MessageID)
	}, WithCapacity(100))
}

func TestConversationsDoNotBleed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a *Archive) {
		ctx := context.Background()

		_, err := a.Store(ctx, 1, testMessage(10))
		require.NoError(t, err)
		_, err = a.Store(ctx, 2, testMessage(20))
		require.NoError(t, err)
		_, err = a.Store(ctx, 2, testMessage(21))
		require.NoError(t, err)

		n, err := a.Store(ctx, 2, testMessage(22))
		require.NoError(t, err)
		require.Equal(t, 3, n)

		msgs, err := a.Latest(ctx, 1, DefaultReadCount)
		require.NoError(t, err)
		require.Equal(t, []Message{testMessage(10)}, msgs)
	})
}

func TestLatestOrderAndBounds(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a *Archive) {
		ctx := context.Background()
		for i := int64(1); i <= 5; i++ {
			_, err := a.Store(ctx, 42, testMessage(i))
			require.NoError(t, err)
		}

		msgs, err := a.Latest(ctx, 42, 3)
		require.NoError(t, err)
		require.Equal(t, []Message{testMessage(5), testMessage(4), testMessage(3)}, msgs)

		msgs, err = a.Latest(ctx, 42, 50)
		require.NoError(t, err)
		require.Len(t, msgs, 5)

		msgs, err = a.Latest(ctx, 404, 10)
		require.NoError(t, err)
		require.Empty(t, msgs)

		ok, err := a.Exists(ctx, 42)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = a.Exists(ctx, 404)
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestStoredMessageRoundTrips(t *testing.T) {
	forEachBackend(t, func(t *testing.T, a *Archive) {
		ctx := context.Background()
		want := Message{
			MessageID:   9,
			Content:     "Привет, ^мир^ 😀",
			OwnerID:     -5,
			OwnerName:   "Борис",
			CreatedAt:   "2024-05-01T10:00:00Z",
			HasSpoilers: true,
		}
		_, err := a.Store(ctx, 3, want)
		require.NoError(t, err)

		msgs, err := a.Latest(ctx, 3, 1)
		require.NoError(t, err)
		require.Equal(t, []Message{want}, msgs)
	})
}

func TestLatestFailsOnCorruptEntry(t *testing.T) {
	for _, bc := range backendCases() {
		t.Run(bc.name, func(t *testing.T) {
			ctx := context.Background()
			backend := bc.open(t)
			a := New(backend)
			t.Cleanup(func() { _ = a.Close() })

			_, err := a.Store(ctx, 8, testMessage(1))
			require.NoError(t, err)
			_, err = backend.PushFrontTrim(ctx, "8", []byte("not json"), MaxCapacity)
			require.NoError(t, err)

			_, err = a.Latest(ctx, 8, 10)
			require.ErrorIs(t, err, ErrDeserialization)
		})
	}
}

func TestLatestNonPositiveSkipsBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	a := New(backend)

	for _, n := range []int{0, -1} {
		msgs, err := a.Latest(context.Background(), 1, n)
		require.NoError(t, err)
		require.NotNil(t, msgs)
		require.Empty(t, msgs)
	}
}

func TestBackendErrorsPropagate(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockBackend(ctrl)
	a := New(backend, WithCapacity(25), WithKeyPrefix("chat:"))

	down := errors.New("connection reset")
	backend.EXPECT().PushFrontTrim(gomock.Any(), "chat:-77", gomock.Any(), 25).Return(int64(0), down).Times(1)
	backend.EXPECT().Range(gomock.Any(), "chat:-77", int64(0), int64(4)).Return(nil, down).Times(1)
	backend.EXPECT().Exists(gomock.Any(), "chat:-77").Return(false, down).Times(1)

	_, err := a.Store(context.Background(), -77, testMessage(1))
	require.ErrorIs(t, err, down)

	_, err = a.Latest(context.Background(), -77, 5)
	require.ErrorIs(t, err, down)

	_, err = a.Exists(context.Background(), -77)
	require.ErrorIs(t, err, down)
}

func TestDescribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	describing := struct {
		*mocks.MockBackend
		*mocks.MockDescriber
	}{mocks.NewMockBackend(ctrl), mocks.NewMockDescriber(ctrl)}
	describing.MockDescriber.EXPECT().Describe(gomock.Any()).Return(map[string]string{"redis_version": "7.2.4"}, nil)

	info, err := New(describing, WithCapacity(50)).Describe(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"redis_version": "7.2.4", "capacity": "50"}, info)

	plain := mocks.NewMockBackend(ctrl)
	info, err = New(plain).Describe(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]string{"capacity": "200"}, info)
}

func TestOptionsClamp(t *testing.T) {
	a := New(nil, WithCapacity(1000), WithDefaultRead(0))
	require.Equal(t, MaxCapacity, a.Capacity())
	require.Equal(t, 1, a.DefaultRead())

	a = New(nil)
	require.Equal(t, MaxCapacity, a.Capacity())
	require.Equal(t, DefaultReadCount, a.DefaultRead())
}

func TestChronological(t *testing.T) {
	newest := []Message{testMessage(3), testMessage(2), testMessage(1)}
	got := Chronological(newest)
	require.Equal(t, []Message{testMessage(1), testMessage(2), testMessage(3)}, got)
	require.Equal(t, int64(3), newest[0].MessageID)
	require.Empty(t, Chronological(nil))
}
