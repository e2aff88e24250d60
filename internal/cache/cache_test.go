package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/ambientctx/internal/model"
)

func sampleRecord() model.CachedLocationRecord {
	return model.CachedLocationRecord{
		Location: model.Location{
			Latitude:  39.7392,
			Longitude: -104.9903,
			City:      "Denver",
			Region:    "CO",
			Country:   "United States",
			Timezone:  "America/Denver",
			IP:        "198.51.100.4",
			State:     "Colorado",
		},
		Classification: model.ClassUrban,
	}
}

// storeContract exercises the behaviour every backend must share.
func storeContract(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	rec, err := st.Get(ctx, LocationKey)
	require.NoError(t, err)
	assert.Nil(t, rec, "empty session is a miss")

	want := sampleRecord()
	require.NoError(t, st.Set(ctx, LocationKey, want))

	got, err := st.Get(ctx, LocationKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)

	wantJSON, _ := json.Marshal(want)
	gotJSON, _ := json.Marshal(got)
	assert.Equal(t, string(wantJSON), string(gotJSON))

	want.Classification = model.ClassRural
	require.NoError(t, st.Set(ctx, LocationKey, want))
	got, err = st.Get(ctx, LocationKey)
	require.NoError(t, err)
	assert.Equal(t, model.ClassRural, got.Classification)

	require.NoError(t, st.Clear(ctx))
	got, err = st.Get(ctx, LocationKey)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore(t *testing.T) {
	st := NewMemory()
	defer st.Close() //nolint:errcheck
	storeContract(t, st)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	require.NoError(t, st.Set(ctx, LocationKey, sampleRecord()))

	got, err := st.Get(ctx, LocationKey)
	require.NoError(t, err)
	got.Location.City = "Mutated"

	again, err := st.Get(ctx, LocationKey)
	require.NoError(t, err)
	assert.Equal(t, "Denver", again.Location.City)
}

func newTestSQLiteStore(t *testing.T, path, session string) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(path, session)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLiteStore(t *testing.T) {
	st := newTestSQLiteStore(t, filepath.Join(t.TempDir(), "cache.db"), "session-a")
	storeContract(t, st)
}

func TestSQLiteStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	a := newTestSQLiteStore(t, path, "session-a")
	b := newTestSQLiteStore(t, path, "session-b")

	require.NoError(t, a.Set(ctx, LocationKey, sampleRecord()))

	got, err := b.Get(ctx, LocationKey)
	require.NoError(t, err)
	assert.Nil(t, got, "a new session starts empty")

	require.NoError(t, b.Clear(ctx))
	got, err = a.Get(ctx, LocationKey)
	require.NoError(t, err)
	assert.NotNil(t, got, "clearing one session leaves others alone")
}

func TestSQLiteStore_SurvivesReopenWithinSession(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	first, err := NewSQLite(path, "sess")
	require.NoError(t, err)
	require.NoError(t, first.Migrate(ctx))
	require.NoError(t, first.Set(ctx, LocationKey, sampleRecord()))
	require.NoError(t, first.Close())

	second := newTestSQLiteStore(t, path, "sess")
	got, err := second.Get(ctx, LocationKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Colorado", got.Location.State)
}

func TestOpen_Memory(t *testing.T) {
	st, err := Open(context.Background(), Options{})
	require.NoError(t, err)
	_, ok := st.(*MemoryStore)
	assert.True(t, ok)
}

func TestOpen_SQLiteMigrates(t *testing.T) {
	st, err := Open(context.Background(), Options{
		Driver:     DriverSQLite,
		Session:    "s1",
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	storeContract(t, st)
}

func TestOpen_Errors(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr string
	}{
		{"unknown driver", Options{Driver: "etcd"}, "unknown driver"},
		{"sqlite without path", Options{Driver: DriverSQLite}, "sqlite_path is required"},
		{"postgres without url", Options{Driver: DriverPostgres}, "database_url is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeRecord_Invalid(t *testing.T) {
	_, err := decodeRecord([]byte("{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache: decode record")
}
