package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// FixedWindowLimiter implements a fixed-window counter in Redis: INCR a
// key, set its expiry on the first hit of the window, compare against a
// limit. The caller builds key so it already encodes whatever identity
// and route it wants limited (e.g. "ratelimit:login:198.51.100.4").
type FixedWindowLimiter struct {
	rdb *goredis.Client
}

// NewFixedWindowLimiter wraps c. A nil Client makes every call fail
// open (allowed), so rate limiting can be disabled in a deployment
// without special-casing callers.
func NewFixedWindowLimiter(c *Client) *FixedWindowLimiter {
	if c == nil {
		return &FixedWindowLimiter{rdb: nil}
	}
	return &FixedWindowLimiter{rdb: c.rdb}
}

// Decision is the outcome of a single AllowFixedWindow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // 0 if allowed
	ResetAt    time.Time     // window end, best-effort
	Count      int
}

const incrAndExpireIfFirst = `
local c = redis.call("INCR", KEYS[1])
if c == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {c, ttl}
`

// AllowFixedWindow reports whether the caller identified by key may
// proceed, given limit requests per window. limit <= 0 disables the
// limit (always allowed); window <= 0 defaults to one minute.
func (l *FixedWindowLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if l.rdb == nil {
		return Decision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}

	ttlMillis := window.Milliseconds()
	if ttlMillis <= 0 {
		ttlMillis = 60000
	}

	res, err := l.rdb.Eval(ctx, incrAndExpireIfFirst, []string{key}, ttlMillis).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit eval: %w", err)
	}

	arr, ok := res.([]any)
	if !ok || len(arr) != 2 {
		return Decision{}, fmt.Errorf("ratelimit eval: unexpected result shape")
	}
	count := int(arr[0].(int64))
	ttlGot := time.Duration(arr[1].(int64)) * time.Millisecond

	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: maxInt(0, limit-count),
		Count:     count,
	}
	if ttlGot > 0 {
		d.ResetAt = time.Now().Add(ttlGot)
	}
	if !d.Allowed {
		if ttlGot > 0 {
			d.RetryAfter = ttlGot
		} else {
			d.RetryAfter = window
		}
	}
	return d, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
