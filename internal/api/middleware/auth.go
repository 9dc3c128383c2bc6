package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/crmapi/crm-service/internal/api/metrics"
	"github.com/crmapi/crm-service/internal/core/domain"
)

const (
	ctxKeyUsername = "username"
	ctxKeyRole     = "role"
)

// TokenValidator verifies a bearer token and returns its claims.
type TokenValidator interface {
	Validate(token string) (*domain.Claims, error)
}

// Auth validates the bearer token and injects its claims into the context.
func Auth(tokens TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.AccessDeniedTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.AccessDeniedTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.AccessDeniedTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ctxKeyUsername, claims.Subject)
			c.Set(ctxKeyRole, claims.Role)

			return next(c)
		}
	}
}

// Username returns the authenticated subject, or "" before Auth has run.
func Username(c echo.Context) string {
	name, _ := c.Get(ctxKeyUsername).(string)
	return name
}

// Role returns the authenticated role, or "" before Auth has run.
func Role(c echo.Context) domain.Role {
	role, _ := c.Get(ctxKeyRole).(domain.Role)
	return role
}
