// Package cache stores the resolved location for the lifetime of a collector session.
//
// Every backend keys rows by (session ID, cache key). A new session ID starts
// with an empty cache; nothing ever expires within a session.
package cache

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ambientctx/internal/model"
)

// LocationKey is the single key the collector reads and writes.
const LocationKey = "userLocationData"

// Store is a session-scoped key/value store for resolved locations.
type Store interface {
	// Get returns the record for key, or (nil, nil) on a miss.
	Get(ctx context.Context, key string) (*model.CachedLocationRecord, error)
	Set(ctx context.Context, key string, rec model.CachedLocationRecord) error
	// Clear removes every key of the current session.
	Clear(ctx context.Context) error
	Close() error
}

// Migrator is implemented by backends that need a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

func encodeRecord(rec model.CachedLocationRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "cache: encode record")
	}
	return data, nil
}

func decodeRecord(data []byte) (*model.CachedLocationRecord, error) {
	var rec model.CachedLocationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrap(err, "cache: decode record")
	}
	return &rec, nil
}
