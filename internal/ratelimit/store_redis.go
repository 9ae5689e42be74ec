package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Timestamps are stored as sorted-set scores in microseconds so the values
// stay inside Lua's exact integer range.
const micro = int64(time.Microsecond)

// takeScript performs the evict-check-append sequence atomically on the
// Redis side, so concurrent bursts against the same key cannot exceed quota.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local quota = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= quota then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  if oldest[2] == nil then
    return {0, count, window, now}
  end
  local retry = window - (now - tonumber(oldest[2]))
  return {0, count, retry, tonumber(oldest[2])}
end

local seq = redis.call('INCR', key .. ':seq')
redis.call('ZADD', key, now, now .. '-' .. seq)
redis.call('PEXPIRE', key, math.ceil(window / 1000))
redis.call('PEXPIRE', key .. ':seq', math.ceil(window / 1000))
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {1, count + 1, 0, tonumber(oldest[2])}
`)

// RedisStore keeps sliding windows in Redis sorted sets so multiple server
// instances share one view of each identity's admissions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Take implements Store.
func (s *RedisStore) Take(ctx context.Context, key string, quota int, window time.Duration, now time.Time) (Result, error) {
	raw, err := takeScript.Run(ctx, s.client,
		[]string{"ratelimit:" + key},
		now.UnixMicro(), int64(window)/micro, quota,
	).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis take: %w", err)
	}

	return parseTakeReply(raw, quota, window)
}

// parseTakeReply decodes the script's {allowed, count, retry, oldest} array.
// Any malformed reply becomes an error, so the caller's fail-open path
// handles it instead of a zeroed rejection.
func parseTakeReply(raw interface{}, quota int, window time.Duration) (Result, error) {
	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 4 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %v", raw)
	}
	fields := make([]int64, len(reply))
	for i, v := range reply {
		n, ok := v.(int64)
		if !ok {
			return Result{}, fmt.Errorf("ratelimit: unexpected script reply element %T at %d", v, i)
		}
		fields[i] = n
	}
	allowed := fields[0] == 1
	count := int(fields[1])
	retry := time.Duration(fields[2]) * time.Microsecond
	oldest := time.UnixMicro(fields[3])

	res := Result{
		Allowed: allowed,
		Limit:   quota,
		ResetAt: oldest.Add(window),
	}
	if allowed {
		res.Remaining = quota - count
	} else {
		res.RetryAfter = retry
	}
	return res, nil
}

var _ Store = (*RedisStore)(nil)
