package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anonto42/yatube/internal/cache"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	pageCache        cache.Store
}

// NewFollowHandler creates a new FollowHandler. pages is the page cache whose
// copy of the author's profile is dropped for the follower after a change.
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, pages cache.Store) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		pageCache:        pages,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	login := middleware.RequireLogin()
	g.GET("/:username/follow", h.Follow, login)
	g.POST("/:username/follow", h.Follow, login)
	g.GET("/:username/unfollow", h.Unfollow, login)
	g.POST("/:username/unfollow", h.Unfollow, login)
}

// Follow subscribes the current user to an author. Following yourself or an
// author you already follow changes nothing.
func (h *FollowHandler) Follow(c echo.Context) error {
	ctx := c.Request().Context()

	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "user")
	}

	userID := currentUserID(c)
	if userID != author.ID {
		if err := h.followRepository.CreateFollow(ctx, userID, author.ID); err != nil {
			return fmt.Errorf("follow: %w", err)
		}
		logger.Debug("follow", zap.Uint("user_id", userID), zap.Uint("author_id", author.ID))
	}
	return h.backToProfile(c, userID, author.Username)
}

// Unfollow removes the subscription; a missing subscription is a 404.
func (h *FollowHandler) Unfollow(c echo.Context) error {
	ctx := c.Request().Context()

	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "user")
	}

	userID := currentUserID(c)
	err = h.followRepository.DeleteFollow(ctx, userID, author.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
	}
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return h.backToProfile(c, userID, author.Username)
}

// backToProfile redirects to the author's profile after evicting the cached
// copy rendered for the follower.
func (h *FollowHandler) backToProfile(c echo.Context, userID uint, username string) error {
	target := profileURL(username)
	middleware.EvictPage(c.Request().Context(), h.pageCache, userID, target)
	return c.Redirect(http.StatusFound, target)
}
