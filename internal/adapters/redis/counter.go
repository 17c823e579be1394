package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the counter and starts the window on first use. A key left
// without an expiry is given one so it cannot pin a client forever.
var incrScript = redis.NewScript(`
local c = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if c == 1 or ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {c, ttl}
`)

// CounterStore is a ratelimit.CounterStore shared by every API replica.
type CounterStore struct{ c *redis.Client }

func NewCounterStore(c *redis.Client) *CounterStore { return &CounterStore{c: c} }

func (s *CounterStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, time.Time, error) {
	res, err := incrScript.Run(ctx, s.c, []string{key}, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("ratelimit script: unexpected reply %v", res)
	}
	return res[0], time.Now().Add(time.Duration(res[1]) * time.Millisecond), nil
}

func (s *CounterStore) Get(ctx context.Context, key string) (int64, time.Time, bool, error) {
	pipe := s.c.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, time.Time{}, false, err
	}
	n, err := getCmd.Int64()
	if err == redis.Nil {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return n, time.Now().Add(ttlCmd.Val()), true, nil
}

func (s *CounterStore) Reset(ctx context.Context, key string) error {
	return s.c.Del(ctx, key).Err()
}
