package cache

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/ambientctx/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db      *sql.DB
	session string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn, session string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, session: session}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS session_cache (
	session_id TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	record     TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (session_id, cache_key)
);
`

// Migrate creates the session_cache table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (*model.CachedLocationRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM session_cache WHERE session_id = ? AND cache_key = ?`,
		s.session, key,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached location")
	}
	return decodeRecord([]byte(data))
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key string, rec model.CachedLocationRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_cache (session_id, cache_key, record, cached_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (session_id, cache_key) DO UPDATE SET
			record = excluded.record,
			cached_at = excluded.cached_at`,
		s.session, key, string(data),
	)
	return eris.Wrap(err, "sqlite: set cached location")
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM session_cache WHERE session_id = ?`, s.session)
	return eris.Wrap(err, "sqlite: clear session")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
