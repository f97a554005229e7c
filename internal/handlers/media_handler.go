package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"

	"github.com/anonto42/yatube/internal/media"
	"github.com/labstack/echo/v4"
)

// MediaHandler serves uploaded images from the media store
type MediaHandler struct {
	store media.Store
}

func NewMediaHandler(store media.Store) *MediaHandler {
	return &MediaHandler{store: store}
}

func (h *MediaHandler) RegisterMediaRoutes(g *echo.Group) {
	g.GET("/*", h.Serve)
}

// Serve streams one stored object.
func (h *MediaHandler) Serve(c echo.Context) error {
	name := c.Param("*")

	rc, err := h.store.Open(c.Request().Context(), name)
	if errors.Is(err, media.ErrNotFound) || errors.Is(err, media.ErrInvalidName) {
		return echo.NewHTTPError(http.StatusNotFound, "file not found")
	}
	if err != nil {
		return fmt.Errorf("open media %q: %w", name, err)
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	c.Response().Header().Set("X-Content-Type-Options", "nosniff")
	return c.Stream(http.StatusOK, contentType, rc)
}
