package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/anonto42/yatube/internal/cache"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type cachedPage struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	http.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// PageKey is the cache key of the page at uri as rendered for userID; 0 is
// the anonymous viewer.
func PageKey(userID uint, uri string) string {
	return "page:" + strconv.FormatUint(uint64(userID), 10) + ":" + uri
}

func pageKey(c echo.Context) string {
	var uid uint
	if user := CurrentUser(c); user != nil {
		uid = user.ID
	}
	return PageKey(uid, c.Request().RequestURI)
}

// EvictPage drops the cached copy of uri for userID. Failures are logged only.
func EvictPage(ctx context.Context, store cache.Store, userID uint, uri string) {
	key := PageKey(userID, uri)
	if err := store.Delete(ctx, key); err != nil {
		logger.Warn("page cache evict failed", zap.String("key", key), zap.Error(err))
	}
}

// PageCache serves rendered GET pages from store for ttl. Entries are keyed
// by the viewer and the request URI, and only 200 responses are stored.
func PageCache(store cache.Store, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}

			ctx := c.Request().Context()
			key := pageKey(c)

			raw, err := store.Get(ctx, key)
			switch {
			case err == nil:
				var page cachedPage
				if err := json.Unmarshal(raw, &page); err == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(http.StatusOK, page.ContentType, page.Body)
				}
				logger.Warn("discarding corrupt cache entry", zap.String("key", key))
			case !errors.Is(err, cache.ErrMiss):
				logger.Warn("page cache read failed", zap.String("key", key), zap.Error(err))
			}

			res := c.Response()
			original := res.Writer
			capture := &captureWriter{ResponseWriter: original}
			res.Writer = capture
			err = next(c)
			res.Writer = original
			if err != nil || res.Status != http.StatusOK {
				return err
			}

			entry, err := json.Marshal(cachedPage{
				ContentType: res.Header().Get(echo.HeaderContentType),
				Body:        capture.buf.Bytes(),
			})
			if err != nil {
				logger.Warn("page cache encode failed", zap.Error(err))
				return nil
			}
			if err := store.Set(ctx, key, entry, ttl); err != nil {
				logger.Warn("page cache write failed", zap.String("key", key), zap.Error(err))
			}
			return nil
		}
	}
}
