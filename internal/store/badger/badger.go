package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/vovakirdan/chatnuff/internal/store"
)

// Options configures Open.
type Options struct {
	Dir      string
	InMemory bool
}

// BadgerStore implements store.Backend on an embedded badger database.
//
// Entries of a list live under "l/<key>/<seq>" where seq is a big-endian counter,
// so a reverse prefix scan yields the newest entry first. The next seq for a list
// is kept under "h/<key>".
type BadgerStore struct {
	db    *badger.DB
	locks sync.Map // list key -> *sync.Mutex
}

// Open opens (or creates) the database.
func Open(opts Options) (*BadgerStore, error) {
	bopts := badger.DefaultOptions(opts.Dir).WithLoggingLevel(badger.ERROR)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", store.ClassifyDialError(err))
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func listPrefix(key string) []byte {
	return []byte("l/" + key + "/")
}

func entryKey(key string, seq uint64) []byte {
	prefix := listPrefix(key)
	out := make([]byte, len(prefix)+8)
	copy(out, prefix)
	binary.BigEndian.PutUint64(out[len(prefix):], seq)
	return out
}

func headKey(key string) []byte {
	return []byte("h/" + key)
}

// lock serializes writers of one list; badger transactions on the same keys
// would otherwise fail with ErrConflict.
func (s *BadgerStore) lock(key string) func() {
	m, _ := s.locks.LoadOrStore(key, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// PushFrontTrim appends value as the newest entry and drops entries past keep.
func (s *BadgerStore) PushFrontTrim(ctx context.Context, key string, value []byte, keep int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.db.IsClosed() {
		return 0, store.ErrClosed
	}

	unlock := s.lock(key)
	defer unlock()

	var length int64
	err := s.db.Update(func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, key)
		if err != nil {
			return err
		}
		if err := txn.Set(entryKey(key, seq), value); err != nil {
			return err
		}
		var next [8]byte
		binary.BigEndian.PutUint64(next[:], seq+1)
		if err := txn.Set(headKey(key), next[:]); err != nil {
			return err
		}

		var stale [][]byte
		length, stale = scanNewestFirst(txn, key, keep)
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("push to list %q: %w", key, err)
	}
	return length, nil
}

func nextSeq(txn *badger.Txn, key string) (uint64, error) {
	item, err := txn.Get(headKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	var seq uint64
	err = item.Value(func(v []byte) error {
		if len(v) != 8 {
			return fmt.Errorf("corrupt head for %q", key)
		}
		seq = binary.BigEndian.Uint64(v)
		return nil
	})
	return seq, err
}

// scanNewestFirst counts the entries kept under key and collects the keys of those past keep.
func scanNewestFirst(txn *badger.Txn, key string, keep int) (int64, [][]byte) {
	prefix := listPrefix(key)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Reverse = true
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var kept int64
	var stale [][]byte
	for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
		if !isEntry(prefix, it.Item().Key()) {
			continue
		}
		if kept < int64(keep) {
			kept++
			continue
		}
		stale = append(stale, it.Item().KeyCopy(nil))
	}
	return kept, stale
}

// seekLast returns a key sorting after every entry key under prefix, for reverse iteration.
func seekLast(prefix []byte) []byte {
	out := make([]byte, len(prefix)+9)
	copy(out, prefix)
	for i := len(prefix); i < len(out); i++ {
		out[i] = 0xFF
	}
	return out
}

// isEntry filters out keys of other lists sharing the prefix, e.g. "a/b" under "a".
func isEntry(prefix, k []byte) bool {
	return len(k) == len(prefix)+8
}

// Range returns entries newest first between start and stop inclusive.
func (s *BadgerStore) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	values := [][]byte{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := listPrefix(key)
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var idx int64
		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if !isEntry(prefix, it.Item().Key()) {
				continue
			}
			if stop >= 0 && idx > stop {
				break
			}
			if idx >= start {
				v, err := it.Item().ValueCopy(nil)
				if err != nil {
					return err
				}
				values = append(values, v)
			}
			idx++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("range list %q: %w", key, err)
	}
	return values, nil
}

// Length returns the number of entries under key.
func (s *BadgerStore) Length(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := listPrefix(key)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if isEntry(prefix, it.Item().Key()) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("length of list %q: %w", key, err)
	}
	return n, nil
}

// Exists reports whether key has any entry.
func (s *BadgerStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.Length(ctx, key)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Ping fails once the database is closed.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return store.ErrClosed
	}
	return nil
}

// Describe reports LSM and value log sizes.
func (s *BadgerStore) Describe(ctx context.Context) (map[string]string, error) {
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	lsm, vlog := s.db.Size()
	return map[string]string{
		"lsm_bytes":  fmt.Sprint(lsm),
		"vlog_bytes": fmt.Sprint(vlog),
	}, nil
}
