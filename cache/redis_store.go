package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flipsync/fabric/types"
)

// KeyPrefixLLM is the key prefix used for LLM response cache entries.
const KeyPrefixLLM = "flipsync:llm:"

// KeyPrefixAI builds the prefix for other AI artifact kinds
// ("flipsync:ai:<type>:").
func KeyPrefixAI(kind string) string {
	return "flipsync:ai:" + kind + ":"
}

type redisEntry struct {
	Response types.LLMResponse `json:"response"`
	StoredAt time.Time         `json:"stored_at"`
	TTLSec   int               `json:"ttl_sec"`
}

// RedisCache is a ResponseCache backed by a Redis-compatible store.
// It keeps expired entries around past TTL (Redis is told to expire at
// 2x TTL) so LookupStale can still serve them for a bounded window.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisCache wraps an existing *redis.Client (from CACHE_URL).
func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: KeyPrefixLLM, logger: logger.With(zap.String("component", "cache.redis"))}
}

func (r *RedisCache) key(fingerprint string) string { return r.prefix + fingerprint }

func (r *RedisCache) Lookup(ctx context.Context, fingerprint string) (types.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, r.key(fingerprint)).Bytes()
	if err == redis.Nil {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, types.NewError(types.ErrTransport, "redis cache get failed").WithComponent("cache").WithCause(err)
	}
	var stored redisEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return types.CacheEntry{}, false, types.NewError(types.ErrProtocol, "redis cache entry malformed").WithComponent("cache").WithCause(err)
	}
	entry := types.CacheEntry{Fingerprint: fingerprint, Response: stored.Response, StoredAt: stored.StoredAt, TTLSec: stored.TTLSec}
	if entry.Expired(time.Now()) {
		return types.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

// LookupStale relies on the fact Store sets a Redis TTL twice the
// logical TTL, so an expired-by-our-clock entry may still be present.
func (r *RedisCache) LookupStale(ctx context.Context, fingerprint string) (types.CacheEntry, bool, error) {
	raw, err := r.client.Get(ctx, r.key(fingerprint)).Bytes()
	if err == redis.Nil {
		return types.CacheEntry{}, false, nil
	}
	if err != nil {
		return types.CacheEntry{}, false, types.NewError(types.ErrTransport, "redis cache get failed").WithComponent("cache").WithCause(err)
	}
	var stored redisEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		return types.CacheEntry{}, false, nil
	}
	entry := types.CacheEntry{Fingerprint: fingerprint, Response: stored.Response, StoredAt: stored.StoredAt, TTLSec: stored.TTLSec}
	if !entry.Expired(time.Now()) {
		return types.CacheEntry{}, false, nil
	}
	return entry, true, nil
}

func (r *RedisCache) Store(ctx context.Context, fingerprint string, response types.LLMResponse, ttlSec int) error {
	entry := redisEntry{Response: response, StoredAt: time.Now(), TTLSec: ttlSec}
	raw, err := json.Marshal(entry)
	if err != nil {
		return types.NewError(types.ErrProtocol, "redis cache marshal failed").WithComponent("cache").WithCause(err)
	}
	redisTTL := time.Duration(ttlSec) * time.Second * 2
	if err := r.client.Set(ctx, r.key(fingerprint), raw, redisTTL).Err(); err != nil {
		r.logger.Warn("cache store failed", zap.Error(err))
		return types.NewError(types.ErrTransport, "redis cache set failed").WithComponent("cache").WithCause(err)
	}
	return nil
}
