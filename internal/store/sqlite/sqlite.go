package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/chatnuff/internal/store"
)

// Schema creates the list table. Higher seq means newer entry.
const Schema = `
	CREATE TABLE IF NOT EXISTS archive_entries (
		list_key TEXT    NOT NULL,
		seq      INTEGER NOT NULL,
		value    BLOB    NOT NULL,
		PRIMARY KEY (list_key, seq)
	);
`

// SQLiteStore implements store.Backend for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file, or ":memory:".
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", store.ClassifyDialError(err))
	}

	// A single connection serializes writers, which makes PushFrontTrim atomic
	// per key and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", store.ClassifyDialError(err))
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", store.ClassifyDialError(err))
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PushFrontTrim inserts value as the newest entry and deletes everything past keep.
func (s *SQLiteStore) PushFrontTrim(ctx context.Context, key string, value []byte, keep int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	insert := `
		INSERT INTO archive_entries (list_key, seq, value)
		SELECT ?, COALESCE(MAX(seq), 0) + 1, ?
		FROM archive_entries
		WHERE list_key = ?
	`
	if _, err := tx.ExecContext(ctx, insert, key, value, key); err != nil {
		return 0, fmt.Errorf("insert entry: %w", err)
	}

	trim := `
		DELETE FROM archive_entries
		WHERE list_key = ? AND seq <= (
			SELECT seq FROM archive_entries
			WHERE list_key = ?
			ORDER BY seq DESC
			LIMIT 1 OFFSET ?
		)
	`
	if _, err := tx.ExecContext(ctx, trim, key, key, keep); err != nil {
		return 0, fmt.Errorf("trim entries: %w", err)
	}

	var n int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_entries WHERE list_key = ?`, key).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// Range returns entries newest first between start and stop inclusive.
func (s *SQLiteStore) Range(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	if start < 0 {
		start = 0
	}
	limit := int64(-1)
	if stop >= 0 {
		if stop < start {
			return [][]byte{}, nil
		}
		limit = stop - start + 1
	}

	query := `
		SELECT value FROM archive_entries
		WHERE list_key = ?
		ORDER BY seq DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, key, limit, start)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	values := [][]byte{}
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return values, nil
}

// Length returns the number of entries under key.
func (s *SQLiteStore) Length(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM archive_entries WHERE list_key = ?`, key).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// Exists reports whether key has any entry.
func (s *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM archive_entries WHERE list_key = ?)`, key).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check entries: %w", err)
	}
	return exists, nil
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// Describe reports the sqlite library version and the number of stored lists.
func (s *SQLiteStore) Describe(ctx context.Context) (map[string]string, error) {
	var version string
	if err := s.db.QueryRowContext(ctx, `SELECT sqlite_version()`).Scan(&version); err != nil {
		return nil, fmt.Errorf("query version: %w", err)
	}
	var lists int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT list_key) FROM archive_entries`).Scan(&lists); err != nil {
		return nil, fmt.Errorf("count lists: %w", err)
	}
	return map[string]string{
		"sqlite_version": version,
		"lists":          fmt.Sprint(lists),
	}, nil
}
