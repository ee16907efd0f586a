package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "access:version"
	bumpChannel     = "access:bump"
)

// Cache stores per-identity query results in Redis under versioned keys.
// A nil Cache or client passes every load through.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Epoch returns the identity's sign-out counter. Missing means zero.
func (c *Cache) Epoch(ctx context.Context, userID uuid.UUID) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	epoch, err := c.client.Get(ctx, epochKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return epoch, err
}

// Key composes the cache key for an identity's query result. The key embeds
// the identity's epoch, so a load started before Flush writes to a key no
// later read will use.
func (c *Cache) Key(ctx context.Context, userID uuid.UUID, kind string) (string, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	epoch, err := c.Epoch(ctx, userID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("access:%d:%s:%d:%s", ver, userID, epoch, kind), nil
}

// FetchJSON loads a cached value into dest or populates it using loader.
// Loader errors are returned and never cached.
func (c *Cache) FetchJSON(ctx context.Context, userID uuid.UUID, kind string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("access: cache loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return roundTrip(value, dest)
	}
	key, err := c.Key(ctx, userID, kind)
	if err != nil {
		return err
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// Flush retires the identity's current epoch and removes every cached result
// of it across versions.
func (c *Cache) Flush(ctx context.Context, userID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, epochKey(userID)).Err(); err != nil {
		return err
	}
	iter := c.client.Scan(ctx, 0, "access:*:"+userID.String()+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Bump invalidates every cached result by incrementing the version and
// publishing the affected tenant (uuid.Nil for all tenants). The version is
// shared, so entries of other tenants are reloaded on their next read too.
func (c *Cache) Bump(ctx context.Context, restaurantID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, restaurantID.String()).Err()
}

// ListenForInvalidation calls fn for every bump published by any process until
// ctx is done.
func (c *Cache) ListenForInvalidation(ctx context.Context, fn func(restaurantID uuid.UUID)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				id, err := uuid.Parse(msg.Payload)
				if err != nil {
					id = uuid.Nil
				}
				fn(id)
			}
		}
	}()
	return nil
}

func epochKey(userID uuid.UUID) string {
	return "access:epoch:" + userID.String()
}

func roundTrip(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
