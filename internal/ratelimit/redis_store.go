package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// admitScript evaluates every window, then records the attempt in each window
// that counts it. Windows are sorted sets scored by millisecond timestamps.
//
// ARGV: now_ms, member, then (limit, period_ms, count_denied) per key.
// Returns {allowed, retry_ms, violated key indexes...}.
const admitScript = `
local now = tonumber(ARGV[1])
local member = ARGV[2]
local violated = {}
for i = 1, #KEYS do
  local limit = tonumber(ARGV[3 + (i - 1) * 3])
  local period = tonumber(ARGV[4 + (i - 1) * 3])
  redis.call('ZREMRANGEBYSCORE', KEYS[i], '-inf', now - period)
  if redis.call('ZCARD', KEYS[i]) >= limit then
    table.insert(violated, i)
  end
end
local allowed = #violated == 0
for i = 1, #KEYS do
  local limit = tonumber(ARGV[3 + (i - 1) * 3])
  local period = tonumber(ARGV[4 + (i - 1) * 3])
  if allowed or ARGV[5 + (i - 1) * 3] == '1' then
    redis.call('ZADD', KEYS[i], now, member)
    local extra = redis.call('ZCARD', KEYS[i]) - limit
    if extra > 0 then
      redis.call('ZREMRANGEBYRANK', KEYS[i], 0, extra - 1)
    end
    redis.call('PEXPIRE', KEYS[i], period)
  end
end
if allowed then
  return {1, 0}
end
local retry = -1
for _, i in ipairs(violated) do
  local period = tonumber(ARGV[4 + (i - 1) * 3])
  local oldest = redis.call('ZRANGE', KEYS[i], 0, 0, 'WITHSCORES')
  local wait = tonumber(oldest[2]) + period - now
  if retry < 0 or wait < retry then
    retry = wait
  end
end
local out = {0, retry}
for _, i in ipairs(violated) do
  table.insert(out, i)
end
return out
`

// evaler is the subset of *redis.Client used by RedisStore.
type evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisStore shares windows between instances through Redis.
type RedisStore struct {
	rdb       evaler
	newMember func() string
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(rdb evaler) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("ratelimit: redis client must not be nil")
	}
	return &RedisStore{rdb: rdb, newMember: uuid.NewString}, nil
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ratelimit: ping redis: %w", err)
	}
	return rdb, nil
}

// Admit implements Store.
func (s *RedisStore) Admit(ctx context.Context, now time.Time, checks []Check) (Decision, error) {
	if len(checks) == 0 {
		return Decision{Allowed: true}, nil
	}
	keys := make([]string, 0, len(checks))
	args := make([]interface{}, 0, 2+3*len(checks))
	args = append(args, now.UnixMilli(), s.newMember())
	for _, c := range checks {
		keys = append(keys, c.Key)
		countDenied := 0
		if c.Window.CountDenied {
			countDenied = 1
		}
		args = append(args, c.Window.Limit, c.Window.Period.Milliseconds(), countDenied)
	}

	raw, err := s.rdb.Eval(ctx, admitScript, keys, args...).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: redis eval: %w", err)
	}
	return parseScriptResult(raw, checks)
}

func parseScriptResult(raw interface{}, checks []Check) (Decision, error) {
	vals, ok := raw.([]interface{})
	if !ok || len(vals) < 2 {
		return Decision{}, fmt.Errorf("ratelimit: unexpected script result %v", raw)
	}
	nums := make([]int64, len(vals))
	for i, v := range vals {
		n, ok := v.(int64)
		if !ok {
			return Decision{}, fmt.Errorf("ratelimit: unexpected script value %v", v)
		}
		nums[i] = n
	}
	if nums[0] == 1 {
		return Decision{Allowed: true}, nil
	}
	d := Decision{RetryAfter: time.Duration(nums[1]) * time.Millisecond}
	for _, idx := range nums[2:] {
		if idx < 1 || int(idx) > len(checks) {
			return Decision{}, fmt.Errorf("ratelimit: script returned bad index %d", idx)
		}
		d.Violated = append(d.Violated, checks[idx-1].Window.Name)
	}
	sort.Strings(d.Violated)
	return d, nil
}
