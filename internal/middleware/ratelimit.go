package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	apierrors "github.com/yukikurage/org-task-api/internal/errors"
)

// NewRateLimiter creates a Gin middleware for rate limiting keyed by client IP.
// requests is the number of requests allowed per period.
// period is a duration string (e.g., "1m", "1h").
func NewRateLimiter(store limiter.Store, requests int64, period string) (gin.HandlerFunc, error) {
	duration, err := time.ParseDuration(period)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit period %q: %w", period, err)
	}
	if requests <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d: must be positive", requests)
	}

	rate := limiter.Rate{
		Period: duration,
		Limit:  requests,
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			apierrors.TooManyRequests(c)
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log := LoggerFrom(c)
			log.Error().Err(err).Msg("rate limiter store failed")
			apierrors.InternalError(c, "")
		}),
	), nil
}
