package sqlite

import (
	"context"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/vovakirdan/chatnuff/internal/store"
)

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPushFrontTrim(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	tests := []struct {
		value string
		want  int64
	}{
		{"a", 1},
		{"b", 2},
		{"c", 3},
		{"d", 3},
		{"e", 3},
	}
	for _, tt := range tests {
		n, err := s.PushFrontTrim(ctx, "-100", []byte(tt.value), 3)
		if err != nil {
			t.Fatalf("push %s: %v", tt.value, err)
		}
		if n != tt.want {
			t.Errorf("push %s: expected length %d, got %d", tt.value, tt.want, n)
		}
	}

	values, err := s.Range(ctx, "-100", 0, -1)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	want := []string{"e", "d", "c"}
	if len(values) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(values))
	}
	for i, v := range values {
		if string(v) != want[i] {
			t.Errorf("expected %s at index %d, got %s", want[i], i, v)
		}
	}
}

func TestRangeBounds(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := s.PushFrontTrim(ctx, "k", []byte(strconv.Itoa(i)), 100); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	tests := []struct {
		name        string
		start, stop int64
		want        []string
	}{
		{name: "head", start: 0, stop: 2, want: []string{"9", "8", "7"}},
		{name: "middle", start: 3, stop: 4, want: []string{"6", "5"}},
		{name: "past end", start: 8, stop: 50, want: []string{"1", "0"}},
		{name: "inverted", start: 5, stop: 1, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := s.Range(ctx, "k", tt.start, tt.stop)
			if err != nil {
				t.Fatalf("range: %v", err)
			}
			if len(values) != len(tt.want) {
				t.Fatalf("expected %v, got %d values", tt.want, len(values))
			}
			for i, v := range values {
				if string(v) != tt.want[i] {
					t.Errorf("expected %s at index %d, got %s", tt.want[i], i, v)
				}
			}
		})
	}
}

func TestExistsAndIsolation(t *testing.T) {
	s := newMemoryStore(t)
	ctx := context.Background()

	if ok, err := s.Exists(ctx, "a"); err != nil || ok {
		t.Fatalf("expected missing key, got %v, %v", ok, err)
	}

	if _, err := s.PushFrontTrim(ctx, "a", []byte("1"), 5); err != nil {
		t.Fatalf("push: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.PushFrontTrim(ctx, "b", []byte("x"), 5); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	if ok, err := s.Exists(ctx, "a"); err != nil || !ok {
		t.Fatalf("expected key a to exist, got %v, %v", ok, err)
	}
	if n, _ := s.Length(ctx, "a"); n != 1 {
		t.Errorf("expected 1 entry under a, got %d", n)
	}
	if n, _ := s.Length(ctx, "b"); n != 3 {
		t.Errorf("expected 3 entries under b, got %d", n)
	}

	info, err := s.Describe(ctx)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if info["lists"] != "2" || info["sqlite_version"] == "" {
		t.Errorf("unexpected describe output: %v", info)
	}
}

func TestConcurrentWritersOnFile(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.PushFrontTrim(ctx, "shared", []byte(strconv.Itoa(i)), 7); err != nil {
				t.Errorf("push %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if n, _ := s.Length(ctx, "shared"); n != 7 {
		t.Errorf("expected 7 entries, got %d", n)
	}
}

var _ store.Backend = (*SQLiteStore)(nil)
var _ store.Describer = (*SQLiteStore)(nil)
