// Package cache keeps short-lived pickup status snapshots in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPickupStatus = "pickup_status:%s"

// TTLStatus bounds how stale a cached status may be.
var TTLStatus = 5 * time.Minute

// ErrMiss is returned when no snapshot is cached.
var ErrMiss = errors.New("cache miss")

// StatusSnapshot is the cached view of a pickup.
type StatusSnapshot struct {
	Status      string    `json:"status"`
	PointsAdded bool      `json:"pointsAdded"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// StatusCache reads and writes pickup status snapshots.
type StatusCache interface {
	Get(ctx context.Context, pickupID string) (StatusSnapshot, error)
	Set(ctx context.Context, pickupID string, s StatusSnapshot) error
	Delete(ctx context.Context, pickupID string) error
}

// New connects to Redis at addr.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 2 * time.Second,
		ReadTimeout: 2 * time.Second,
	})
}

// RedisStatusCache implements StatusCache on a go-redis client.
type RedisStatusCache struct {
	rdb redis.Cmdable
}

// NewStatusCache wraps rdb.
func NewStatusCache(rdb redis.Cmdable) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb}
}

func (c *RedisStatusCache) Get(ctx context.Context, pickupID string) (StatusSnapshot, error) {
	var s StatusSnapshot
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(keyPickupStatus, pickupID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s, ErrMiss
	}
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(raw, &s)
	return s, err
}

func (c *RedisStatusCache) Set(ctx context.Context, pickupID string, s StatusSnapshot) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyPickupStatus, pickupID), b, TTLStatus).Err()
}

func (c *RedisStatusCache) Delete(ctx context.Context, pickupID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf(keyPickupStatus, pickupID)).Err()
}

// Noop never caches; every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, string) (StatusSnapshot, error) { return StatusSnapshot{}, ErrMiss }
func (Noop) Set(context.Context, string, StatusSnapshot) error   { return nil }
func (Noop) Delete(context.Context, string) error                { return nil }
