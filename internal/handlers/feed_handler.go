package handlers

import (
	"net/http"

	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler renders the paginated post timelines
type FeedHandler struct {
	postRepository   repositories.PostRepository
	groupRepository  repositories.GroupRepository
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	groupRepo repositories.GroupRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
) *FeedHandler {
	return &FeedHandler{
		postRepository:   postRepo,
		groupRepository:  groupRepo,
		userRepository:   userRepo,
		followRepository: followRepo,
	}
}

// RegisterFeedRoutes registers the timeline routes. cached wraps the public
// timelines in the page cache.
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group, cached echo.MiddlewareFunc) {
	g.GET("/", h.Index, cached)
	g.GET("/group/:slug", h.GroupPosts, cached)
	g.GET("/follow", h.FollowIndex, middleware.RequireLogin())
	g.GET("/:username", h.Profile, cached)
}

// Index shows every post, newest first
func (h *FeedHandler) Index(c echo.Context) error {
	posts, page, err := paginatePosts(c.Request().Context(), h.postRepository, repositories.PostFilter{}, c.QueryParam("page"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "index.html", echo.Map{
		"Posts": posts,
		"Page":  page,
	})
}

// GroupPosts shows the posts of one group
func (h *FeedHandler) GroupPosts(c echo.Context) error {
	ctx := c.Request().Context()

	group, err := h.groupRepository.GetGroupBySlug(ctx, c.Param("slug"))
	if err != nil {
		return notFoundOr(err, "group")
	}

	posts, page, err := paginatePosts(ctx, h.postRepository, repositories.PostFilter{GroupID: group.ID}, c.QueryParam("page"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "group.html", echo.Map{
		"Group": group,
		"Posts": posts,
		"Page":  page,
	})
}

// FollowIndex shows posts by the authors the current user follows
func (h *FeedHandler) FollowIndex(c echo.Context) error {
	filter := repositories.PostFilter{FollowerID: currentUserID(c)}
	posts, page, err := paginatePosts(c.Request().Context(), h.postRepository, filter, c.QueryParam("page"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "follow.html", echo.Map{
		"Posts": posts,
		"Page":  page,
	})
}

// Profile shows one author's posts and follow counters
func (h *FeedHandler) Profile(c echo.Context) error {
	ctx := c.Request().Context()

	author, err := h.userRepository.GetUserByUsername(ctx, c.Param("username"))
	if err != nil {
		return notFoundOr(err, "user")
	}

	posts, page, err := paginatePosts(ctx, h.postRepository, repositories.PostFilter{AuthorID: author.ID}, c.QueryParam("page"))
	if err != nil {
		return err
	}

	followers, err := h.followRepository.CountFollowers(ctx, author.ID)
	if err != nil {
		return err
	}
	following, err := h.followRepository.CountFollowing(ctx, author.ID)
	if err != nil {
		return err
	}

	isFollowing := false
	if viewer := currentUserID(c); viewer != 0 && viewer != author.ID {
		isFollowing, err = h.followRepository.IsFollowing(ctx, viewer, author.ID)
		if err != nil {
			return err
		}
	}

	return c.Render(http.StatusOK, "profile.html", echo.Map{
		"Author":         author,
		"Posts":          posts,
		"Page":           page,
		"PostCount":      page.Count,
		"FollowerCount":  followers,
		"FollowingCount": following,
		"Following":      isFollowing,
	})
}
