package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNoLimiterStore = errors.New("rate limit store unavailable")

// Limiter is a fixed window counter in Redis, keyed rl:<name>:<id>.
type Limiter struct {
	rdb    *redis.Client
	name   string
	limit  int
	window time.Duration

	// FailClosed rejects requests with 503 when Redis cannot be reached.
	// The default lets them through.
	FailClosed bool
}

// Decision is the outcome of one counted hit.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

func NewLimiter(rdb *redis.Client, name string, limit int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, name: name, limit: limit, window: window}
}

// limitsDisabled is true for local development and load tests.
func limitsDisabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "stress":
		return true
	}
	return false
}

// Allow counts a hit for id.
func (l *Limiter) Allow(ctx context.Context, id string) (Decision, error) {
	if limitsDisabled() {
		return Decision{Allowed: true, Remaining: l.limit}, nil
	}
	if l.rdb == nil {
		return Decision{}, errNoLimiterStore
	}

	key := fmt.Sprintf("rl:%s:%s", l.name, id)
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("count %s: %w", key, err)
	}

	left := ttl.Val()
	if left < 0 {
		// First hit in the window, or a key that lost its expiry.
		if err := l.rdb.PExpire(ctx, key, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("expire %s: %w", key, err)
		}
		left = l.window
	}

	n := int(incr.Val())
	d := Decision{Allowed: n <= l.limit, Remaining: max(l.limit-n, 0)}
	if !d.Allowed {
		d.RetryAfter = left
	}
	return d, nil
}

// Handler enforces the limit per signed in user, or per client IP.
func (l *Limiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}

		d, err := l.Allow(c.UserContext(), id)
		if err != nil {
			if !l.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit unavailable",
				"limiter", l.name, "error", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"message": "Rate limit unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later.",
			})
		}
		return c.Next()
	}
}

// RateLimit is shorthand for a fail-open limiter's handler.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name string) fiber.Handler {
	return NewLimiter(rdb, name, limit, window).Handler()
}
