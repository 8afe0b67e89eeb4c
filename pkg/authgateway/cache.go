package authgateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenCache remembers verified identities so hot tokens skip the provider round trip.
type TokenCache interface {
	Get(ctx context.Context, token string) (*Identity, bool)
	Set(ctx context.Context, token string, identity *Identity, ttl time.Duration)
}

const tokenKeyPrefix = "auth:token:"

type RedisTokenCache struct {
	Redis *redis.Client
}

func NewRedisTokenCache(rdb *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{Redis: rdb}
}

// tokenKey never stores the raw bearer token in redis.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisTokenCache) Get(ctx context.Context, token string) (*Identity, bool) {
	val, err := c.Redis.Get(ctx, tokenKey(token)).Result()
	if err != nil {
		return nil, false
	}
	var identity Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		return nil, false
	}
	return &identity, true
}

func (c *RedisTokenCache) Set(ctx context.Context, token string, identity *Identity, ttl time.Duration) {
	data, err := json.Marshal(identity)
	if err != nil {
		return
	}
	c.Redis.Set(ctx, tokenKey(token), data, ttl)
}
