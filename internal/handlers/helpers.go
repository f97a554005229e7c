package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/pagination"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const flashCookie = "flash"

// parseID reads a positive integer path parameter.
func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// notFoundOr maps a missing record to a 404 and wraps everything else.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, what+" not found")
	}
	return fmt.Errorf("load %s: %w", what, err)
}

func currentUserID(c echo.Context) uint {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// paginatePosts counts, pages and loads the posts matching filter.
func paginatePosts(ctx context.Context, repo repositories.PostRepository, filter repositories.PostFilter, rawPage string) ([]models.Post, pagination.Page, error) {
	count, err := repo.CountPosts(ctx, filter)
	if err != nil {
		return nil, pagination.Page{}, fmt.Errorf("count posts: %w", err)
	}
	page := pagination.New(count, rawPage, pagination.PageSize)
	posts, err := repo.ListPosts(ctx, filter, page.Offset(), page.Limit())
	if err != nil {
		return nil, page, fmt.Errorf("list posts: %w", err)
	}
	return posts, page, nil
}

// setFlash stores a one-shot message shown by the next rendered page.
func setFlash(c echo.Context, msg string) {
	c.SetCookie(&http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(5 * time.Minute),
	})
}

// popFlash returns the pending flash message and clears it.
func popFlash(c echo.Context) string {
	cookie, err := c.Cookie(flashCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	c.SetCookie(&http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return msg
}

// postURL is the canonical address of a post.
func postURL(username string, id uint) string {
	return fmt.Sprintf("/%s/%d", url.PathEscape(username), id)
}

func profileURL(username string) string {
	return "/" + url.PathEscape(username)
}
