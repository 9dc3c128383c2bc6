package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/crmapi/crm-service/internal/api/metrics"
)

// RateLimiter decides whether another attempt for key is allowed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	Reset(ctx context.Context, key string) error
}

// LoginRateLimit throttles requests per client IP. Limiter failures are
// logged and the request is let through. A successful login clears the
// counter for that IP.
func LoginRateLimit(limiter RateLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			ok, retryAfter, err := limiter.Allow(c.Request().Context(), ip)
			if err != nil {
				log.Warn().Err(err).Str("ip", ip).Msg("login rate limiter unavailable")
				return next(c)
			}
			if !ok {
				metrics.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
				log.Warn().Str("ip", ip).Msg("login rate limit exceeded")
				secs := int(math.Ceil(retryAfter.Seconds()))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
			}

			if err := next(c); err != nil {
				return err
			}
			if c.Response().Status == http.StatusOK {
				if err := limiter.Reset(c.Request().Context(), ip); err != nil {
					log.Warn().Err(err).Str("ip", ip).Msg("login rate limiter reset failed")
				}
			}
			return nil
		}
	}
}
