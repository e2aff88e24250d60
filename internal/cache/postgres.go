package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ambientctx/internal/model"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	session string
	closeFn func()
}

// NewPostgres creates a PostgresStore with a small connection pool.
func NewPostgres(ctx context.Context, connString, session string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, session: session, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS session_cache (
	session_id TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	record     JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, cache_key)
);
`

// Migrate creates the session_cache table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, key string) (*model.CachedLocationRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM session_cache WHERE session_id = $1 AND cache_key = $2`,
		s.session, key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached location")
	}
	return decodeRecord(data)
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, key string, rec model.CachedLocationRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO session_cache (session_id, cache_key, record, cached_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (session_id, cache_key) DO UPDATE SET
			record = EXCLUDED.record,
			cached_at = now()`,
		s.session, key, data,
	)
	return eris.Wrap(err, "postgres: set cached location")
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM session_cache WHERE session_id = $1`, s.session)
	return eris.Wrap(err, "postgres: clear session")
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
