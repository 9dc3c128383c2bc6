package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/crmapi/crm-service/internal/api/middleware"
)

// actor returns the username injected by the Auth middleware, or "anonymous".
func actor(c echo.Context) string {
	if name := middleware.Username(c); name != "" {
		return name
	}
	return "anonymous"
}
