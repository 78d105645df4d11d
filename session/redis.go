package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the session pair under two keys, "<prefix>:token" and
// "<prefix>:user". Both keys are written in one MULTI/EXEC with the same TTL
// and removed by one DEL.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore creates a [RedisStore]. An empty prefix defaults to "opsauth".
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "opsauth"
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) tokenKey() string {
	return s.prefix + ":token"
}

func (s *RedisStore) userKey() string {
	return s.prefix + ":user"
}

func (s *RedisStore) Load(ctx context.Context) (Record, error) {
	vals, err := s.redis.MGet(ctx, s.tokenKey(), s.userKey()).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	var e entries
	if len(vals) == 2 {
		e.Token = redisBytes(vals[0])
		e.User = redisBytes(vals[1])
	}
	return decodeEntries(e)
}

// Save writes both entries. When the record declares an expiry still in the
// future the keys expire with it; otherwise they persist until cleared.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	e, err := encodeEntries(rec)
	if err != nil {
		return err
	}

	var ttl time.Duration
	if !rec.ExpiresAt.IsZero() {
		if remaining := time.Until(rec.ExpiresAt); remaining > 0 {
			ttl = remaining
		}
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(), e.Token, ttl)
		pipe.Set(ctx, s.userKey(), e.User, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.tokenKey(), s.userKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func redisBytes(v interface{}) []byte {
	switch t := v.(type) {
	case string:
		return []byte(t)
	case []byte:
		return t
	default:
		return nil
	}
}
