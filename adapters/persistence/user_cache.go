package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/khoahotran/user-directory/internal/application/service"
	"github.com/khoahotran/user-directory/internal/domain/user"
)

const (
	userListGenKey       = "users:gen"
	userListCacheKeyBase = "users:all"
)

func userListCacheKey(gen int64) string {
	return fmt.Sprintf("%s:%d", userListCacheKeyBase, gen)
}

type redisUserListCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisUserListCache stores the list through user.User's JSON form, which
// never contains the password hash. Each list lives under users:all:<gen>;
// Invalidate bumps users:gen so lists filled from an older read are orphaned
// and expire with the TTL.
func NewRedisUserListCache(rdb *redis.Client, ttl time.Duration) service.UserListCache {
	return &redisUserListCache{rdb: rdb, ttl: ttl}
}

func (c *redisUserListCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, userListGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get %s: %w", userListGenKey, err)
	}
	return gen, nil
}

func (c *redisUserListCache) Get(ctx context.Context) ([]*user.User, int64, bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}

	key := userListCacheKey(gen)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var users []*user.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, 0, false, fmt.Errorf("decode cached users: %w", err)
	}
	return users, gen, true, nil
}

func (c *redisUserListCache) Set(ctx context.Context, gen int64, users []*user.User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("encode users for cache: %w", err)
	}
	key := userListCacheKey(gen)
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *redisUserListCache) Invalidate(ctx context.Context) error {
	gen, err := c.rdb.Incr(ctx, userListGenKey).Result()
	if err != nil {
		return fmt.Errorf("redis incr %s: %w", userListGenKey, err)
	}
	// The previous entry is unreachable now; drop it instead of waiting for the TTL.
	if err := c.rdb.Del(ctx, userListCacheKey(gen-1)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", userListCacheKey(gen-1), err)
	}
	return nil
}
