package http

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-reporter/internal/auth"
	apperrors "github.com/spec-kit/civic-reporter/pkg/util/errorutil"
)

const issueLimitWindow = 24 * time.Hour

// counterStore is the subset of the redis client the limiter needs.
type counterStore interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// IssueRateLimiter caps how many issues one user may report per window.
// The window starts at the user's first report. A nil store or a
// non-positive limit disables the check, and store failures let the
// request through.
func IssueRateLimiter(store counterStore, prefix string, limit int, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		if store == nil || limit <= 0 {
			return c.Next()
		}
		principal, ok := auth.PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewUnauthorized("authentication required")
		}

		ctx := c.UserContext()
		key := prefix + ":" + principal.UserID()

		count, err := store.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("issue rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}
		if count == 1 {
			if err := store.Expire(ctx, key, issueLimitWindow).Err(); err != nil {
				logger.Warn("issue rate limiter expire failed", zap.String("key", key), zap.Error(err))
			}
		}

		if count > int64(limit) {
			retryAfter, _ := store.TTL(ctx, key).Result()
			if retryAfter < 0 {
				retryAfter = 0
			}
			seconds := int(math.Ceil(retryAfter.Seconds()))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
			return apperrors.NewTooManyRequests("daily issue limit reached", map[string]any{
				"limit":       limit,
				"retry_after": seconds,
			})
		}
		return c.Next()
	}
}
