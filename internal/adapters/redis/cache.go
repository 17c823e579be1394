package redisad

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"scwatch/internal/adapters/observability"
)

func NewClient(addr, pass string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

// Cache stores JSON-encoded read models.
type Cache struct{ c *redis.Client }

func New(c *redis.Client) *Cache { return &Cache{c: c} }

func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.ObserveCache("redis", "miss")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	observability.ObserveCache("redis", "hit")
	return true, json.Unmarshal(v, dst)
}

func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	observability.ObserveCache("redis", "set")
	return r.c.Set(ctx, key, b, time.Duration(ttlSec)*time.Second).Err()
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("redis", "del")
	return r.c.Del(ctx, key).Err()
}

// DelPrefix walks the keyspace with SCAN so large caches never block redis.
func (r *Cache) DelPrefix(ctx context.Context, prefix string) error {
	iter := r.c.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := r.c.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	observability.ObserveCache("redis", "del")
	if len(batch) == 0 {
		return nil
	}
	return r.c.Del(ctx, batch...).Err()
}
