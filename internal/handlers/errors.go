package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/yatube/internal/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPErrorHandler renders error pages. Unknown errors become a 500 and are
// logged; HTTP errors keep their status.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := ""
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if msg, ok := he.Message.(string); ok && status != http.StatusInternalServerError {
			message = msg
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		if err := c.NoContent(status); err != nil {
			logger.Error("write error response", zap.Error(err))
		}
		return
	}

	var renderErr error
	if status == http.StatusNotFound {
		renderErr = c.Render(status, "misc/404.html", map[string]interface{}{
			"Path": c.Request().URL.Path,
		})
	} else {
		renderErr = c.Render(status, "misc/500.html", map[string]interface{}{
			"Status":  status,
			"Message": message,
		})
	}
	if renderErr != nil {
		logger.Error("render error page", zap.Error(renderErr))
		_ = c.String(status, http.StatusText(status))
	}
}
