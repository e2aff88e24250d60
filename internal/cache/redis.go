package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ambientctx/internal/model"
)

const redisKeyPrefix = "ambientctx"

// RedisStore implements Store on Redis. Keys never expire; Clear ends the session.
type RedisStore struct {
	client  *redis.Client
	session string
}

// RedisOptions holds Redis connection settings.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, session string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return &RedisStore{client: client, session: session}, nil
}

func redisKey(session, key string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, session, key)
}

// sessionPattern matches every key of session. Glob metacharacters in the
// session ID are escaped so SCAN never reaches another session's keys.
func sessionPattern(session string) string {
	var b strings.Builder
	for _, r := range session {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return redisKey(b.String(), "*")
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (*model.CachedLocationRecord, error) {
	data, err := s.client.Get(ctx, redisKey(s.session, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "redis: get cached location")
	}
	return decodeRecord(data)
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, rec model.CachedLocationRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, redisKey(s.session, key), data, 0).Err()
	return eris.Wrap(err, "redis: set cached location")
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, sessionPattern(s.session), 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return eris.Wrap(err, "redis: scan session keys")
	}
	if len(keys) == 0 {
		return nil
	}
	return eris.Wrap(s.client.Del(ctx, keys...).Err(), "redis: clear session")
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
