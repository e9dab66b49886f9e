package middleware

import (
	"context"
	"courtbook/pkg/logger"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "courtbook:idempotency:"
	inFlightKeyPrefix    = "courtbook:idempotency-inflight:"
)

// RedisIdempotencyStore shares cached responses between instances. Entries
// expire through Redis TTLs, so Stop has nothing to do. An in-flight marker
// outlives a crashed request by at most inFlightTTL.
type RedisIdempotencyStore struct {
	client      *redis.Client
	ttl         time.Duration
	inFlightTTL time.Duration
	log         *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:      client,
		ttl:         ttl,
		inFlightTTL: time.Minute,
		log:         log,
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false
	case err != nil:
		s.log.Error("Failed to read idempotency key", "error", err)
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Error("Failed to decode cached response", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to encode cached response", "error", err)
		return
	}
	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Error("Failed to store idempotency key", "error", err)
	}
}

// Reserve fails open when Redis is unreachable.
func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string) bool {
	ok, err := s.client.SetNX(ctx, inFlightKeyPrefix+key, 1, s.inFlightTTL).Result()
	if err != nil {
		s.log.Error("Failed to reserve idempotency key", "error", err)
		return true
	}
	return ok
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := s.client.Del(ctx, inFlightKeyPrefix+key).Err(); err != nil {
		s.log.Error("Failed to release idempotency key", "error", err)
	}
}

func (s *RedisIdempotencyStore) Stop() {}
