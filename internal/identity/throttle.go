package identity

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Throttle limits sign-in attempts per key (the lower-cased email).
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type noThrottle struct{}

func (noThrottle) Allow(context.Context, string) (bool, error) { return true, nil }

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

// LocalThrottle keeps one token bucket per key in process memory.
type LocalThrottle struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	r         rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewLocalThrottle(perMinute float64, burst int) *LocalThrottle {
	if burst <= 0 {
		burst = 1
	}
	return &LocalThrottle{
		entries: make(map[string]*limiterEntry),
		r:       rate.Limit(perMinute / 60),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (t *LocalThrottle) Allow(_ context.Context, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.sweep(now)

	e, ok := t.entries[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(t.r, t.burst)}
		t.entries[key] = e
	}
	e.seen = now
	return e.lim.AllowN(now, 1), nil
}

// sweep drops idle buckets at most once a minute. Caller holds t.mu.
func (t *LocalThrottle) sweep(now time.Time) {
	if now.Sub(t.lastSweep) < time.Minute {
		return
	}
	t.lastSweep = now
	for k, e := range t.entries {
		if now.Sub(e.seen) > t.idle {
			delete(t.entries, k)
		}
	}
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisThrottle is a fixed-window counter shared by every instance using the
// same Redis.
type RedisThrottle struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

func NewRedisThrottle(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisThrottle {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "signin"
	}
	return &RedisThrottle{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	res, err := fixedWindowScript.Run(ctx, t.rdb, []string{t.prefix + ":" + key}, t.window.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("redis throttle: %w", err)
	}

	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		count, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false, fmt.Errorf("redis throttle: %w", err)
		}
	default:
		return false, fmt.Errorf("unexpected redis script result type %T", res)
	}
	return count <= int64(t.limit), nil
}
