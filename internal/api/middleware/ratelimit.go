package middleware

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/natours/auth-api/internal/api/metrics"
	"github.com/natours/auth-api/internal/core/domain"
)

const msgTooManyRequests = "Too many requests from this IP, please try again later."

// Limiter counts hits per key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimit rejects requests from a client IP once limiter reports the limit
// for scope as exhausted. Limiter errors let the request through.
func RateLimit(limiter Limiter, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter, err := limiter.Allow(c.Request().Context(), scope+":"+c.RealIP())
			if err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("rate limiter unavailable")
				return next(c)
			}
			if !ok {
				metrics.RateLimitedTotal.WithLabelValues(scope).Inc()
				secs := int(math.Ceil(retryAfter.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return domain.NewAppError(domain.ErrTooManyRequests, msgTooManyRequests)
			}
			return next(c)
		}
	}
}
