package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// hitScript is the Redis form of decide. It runs atomically on the server,
// so concurrent API instances sharing one Redis see a single count per key.
//
// KEYS[1] = key, ARGV = now (unix ms), limit, window (ms).
// Returns {allowed (0|1), count, retryAfterMs}.
var hitScript = goredis.NewScript(`
local count = tonumber(redis.call('HGET', KEYS[1], 'count') or '0')
local last = tonumber(redis.call('HGET', KEYS[1], 'last') or '0')
local now = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local window = tonumber(ARGV[3])

if count > 0 and now - last > window then
  count = 0
end

if count >= limit then
  return {0, count, window - (now - last)}
end

count = count + 1
redis.call('HSET', KEYS[1], 'count', count, 'last', ARGV[1])
redis.call('PEXPIRE', KEYS[1], window + 1000)
return {1, count, 0}
`)

// RedisStore keeps entries in Redis hashes that expire one second after
// their window, so idle keys never accumulate.
type RedisStore struct {
	rdb goredis.Scripter
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store over rdb.
func NewRedisStore(rdb goredis.Scripter) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Hit implements Store.
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Decision, error) {
	res, err := hitScript.Run(ctx, s.rdb, []string{key}, now.UnixMilli(), limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis hit %s: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("redis hit %s: unexpected reply %v", key, res)
	}

	d := Decision{Allowed: res[0] == 1, Count: int(res[1])}
	if !d.Allowed {
		d.RetryAfter = time.Duration(res[2]) * time.Millisecond
		if d.RetryAfter <= 0 {
			d.RetryAfter = time.Second
		}
	}
	return d, nil
}
