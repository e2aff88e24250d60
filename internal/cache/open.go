package cache

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Session     string
	SQLitePath  string
	DatabaseURL string
	Redis       RedisOptions
}

// Open creates the configured Store and migrates it when needed.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		st  Store
		err error
	)
	switch opts.Driver {
	case "", DriverMemory:
		st = NewMemory()
	case DriverSQLite:
		if opts.SQLitePath == "" {
			return nil, eris.New("cache: sqlite_path is required for the sqlite driver")
		}
		st, err = NewSQLite(opts.SQLitePath, opts.Session)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, eris.New("cache: database_url is required for the postgres driver")
		}
		st, err = NewPostgres(ctx, opts.DatabaseURL, opts.Session)
	case DriverRedis:
		st, err = NewRedis(ctx, opts.Redis, opts.Session)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if m, ok := st.(Migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
	}

	zap.L().Debug("session cache opened",
		zap.String("driver", opts.Driver),
		zap.String("session", opts.Session),
	)
	return st, nil
}
