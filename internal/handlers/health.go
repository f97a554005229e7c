package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/yatube/internal/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheck reports whether the database answers.
func HealthCheck(db Pinger) echo.HandlerFunc {
	return func(e echo.Context) error {
		if err := db.PingContext(e.Request().Context()); err != nil {
			logger.Error("health check failed", zap.Error(err))
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unavailable",
				"service": "yatube",
			})
		}
		return e.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "yatube",
		})
	}
}
