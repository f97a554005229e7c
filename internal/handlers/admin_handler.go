package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/yatube/internal/forms"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/media"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/pagination"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// emptyValue is shown for unset columns.
const emptyValue = "-empty-"

var dateFilters = []string{"today", "week", "month", "year"}

// AdminHandler serves the staff-only back office
type AdminHandler struct {
	userRepository    repositories.UserRepository
	groupRepository   repositories.GroupRepository
	postRepository    repositories.PostRepository
	commentRepository repositories.CommentRepository
	mediaStore        media.Store
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	userRepo repositories.UserRepository,
	groupRepo repositories.GroupRepository,
	postRepo repositories.PostRepository,
	commentRepo repositories.CommentRepository,
	store media.Store,
) *AdminHandler {
	return &AdminHandler{
		userRepository:    userRepo,
		groupRepository:   groupRepo,
		postRepository:    postRepo,
		commentRepository: commentRepo,
		mediaStore:        store,
	}
}

// RegisterAdminRoutes registers the admin routes; g must be mounted under /admin.
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.Use(middleware.RequireStaff())

	g.GET("", h.Dashboard)
	g.GET("/posts", h.ListPosts)
	g.POST("/posts/:id/delete", h.DeletePost)
	g.GET("/groups", h.ListGroups)
	g.POST("/groups", h.CreateGroup)
	g.POST("/groups/:id/delete", h.DeleteGroup)
	g.GET("/comments", h.ListComments)
	g.POST("/comments/:id/delete", h.DeleteComment)
	g.GET("/users", h.ListUsers)
	g.POST("/users/:id/delete", h.DeleteUser)
}

type recordCounts struct {
	Posts    int64
	Groups   int64
	Comments int64
	Users    int64
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()

	var counts recordCounts
	var err error
	if counts.Posts, err = h.postRepository.CountPosts(ctx, repositories.PostFilter{}); err != nil {
		return err
	}
	if counts.Groups, err = h.groupRepository.CountGroups(ctx); err != nil {
		return err
	}
	if counts.Comments, err = h.commentRepository.CountComments(ctx, ""); err != nil {
		return err
	}
	if counts.Users, err = h.userRepository.CountUsers(ctx); err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin/index.html", echo.Map{"Counts": counts})
}

// sinceFor turns a date filter into the earliest pub_date it admits.
func sinceFor(filter string, now time.Time) time.Time {
	y, m, d := now.Date()
	switch filter {
	case "today":
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	case "year":
		return time.Date(y, time.January, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}

// ListPosts lists posts with text search and a pub_date filter
func (h *AdminHandler) ListPosts(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	date := c.QueryParam("date")
	filter := repositories.PostFilter{Search: query, Since: sinceFor(date, time.Now())}

	posts, page, err := paginatePosts(c.Request().Context(), h.postRepository, filter, c.QueryParam("page"))
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "admin/posts.html", echo.Map{
		"Query":       query,
		"Date":        date,
		"DateFilters": dateFilters,
		"Posts":       posts,
		"Page":        page,
		"Empty":       emptyValue,
	})
}

// DeletePost removes a post with its comments and image
func (h *AdminHandler) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := parseID(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	post, err := h.postRepository.GetPostByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "post")
	}
	if err := h.postRepository.DeletePost(ctx, id); err != nil {
		return notFoundOr(err, "post")
	}
	h.removeImage(ctx, post.Image)

	logger.Info("admin deleted post", zap.Uint("post_id", id), zap.Uint("staff_id", currentUserID(c)))
	return c.Redirect(http.StatusFound, "/admin/posts")
}

func (h *AdminHandler) removeImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := h.mediaStore.Delete(ctx, name); err != nil && !errors.Is(err, media.ErrNotFound) {
		logger.Warn("failed to delete image", zap.String("image", name), zap.Error(err))
	}
}

func (h *AdminHandler) renderGroups(c echo.Context, status int, req models.GroupRequest, errs forms.Errors) error {
	groups, err := h.groupRepository.ListGroups(c.Request().Context())
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	return c.Render(status, "admin/groups.html", echo.Map{
		"Groups": groups,
		"Form":   req,
		"Errors": errs,
	})
}

func (h *AdminHandler) ListGroups(c echo.Context) error {
	return h.renderGroups(c, http.StatusOK, models.GroupRequest{}, forms.Errors{})
}

// CreateGroup adds a group; a taken slug is reported on the slug field
func (h *AdminHandler) CreateGroup(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.GroupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Slug = strings.TrimSpace(req.Slug)

	errs := forms.Validate(req)
	if !errs.Has("slug") {
		exists, err := h.groupRepository.SlugExists(ctx, req.Slug)
		if err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if exists {
			errs.Add("slug", "Group with this Slug already exists.")
		}
	}
	if errs.Any() {
		return h.renderGroups(c, http.StatusOK, req, errs)
	}

	group := &models.Group{Title: req.Title, Slug: req.Slug, Description: req.Description}
	if err := h.groupRepository.CreateGroup(ctx, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	logger.Info("admin created group", zap.String("slug", group.Slug), zap.Uint("staff_id", currentUserID(c)))
	return c.Redirect(http.StatusFound, "/admin/groups")
}

// DeleteGroup removes a group; its posts stay without a group
func (h *AdminHandler) DeleteGroup(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "group not found")
	}
	if err := h.groupRepository.DeleteGroup(c.Request().Context(), id); err != nil {
		return notFoundOr(err, "group")
	}
	logger.Info("admin deleted group", zap.Uint("group_id", id), zap.Uint("staff_id", currentUserID(c)))
	return c.Redirect(http.StatusFound, "/admin/groups")
}

// ListComments lists comments with text search
func (h *AdminHandler) ListComments(c echo.Context) error {
	ctx := c.Request().Context()
	query := strings.TrimSpace(c.QueryParam("q"))

	count, err := h.commentRepository.CountComments(ctx, query)
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}
	page := pagination.New(count, c.QueryParam("page"), pagination.PageSize)
	comments, err := h.commentRepository.ListComments(ctx, query, page.Offset(), page.Limit())
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	return c.Render(http.StatusOK, "admin/comments.html", echo.Map{
		"Query":    query,
		"Comments": comments,
		"Page":     page,
		"Empty":    emptyValue,
	})
}

func (h *AdminHandler) DeleteComment(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "comment not found")
	}
	if err := h.commentRepository.DeleteComment(c.Request().Context(), id); err != nil {
		return notFoundOr(err, "comment")
	}
	return c.Redirect(http.StatusFound, "/admin/comments")
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	count, err := h.userRepository.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	page := pagination.New(count, c.QueryParam("page"), pagination.PageSize)
	users, err := h.userRepository.ListUsers(ctx, page.Offset(), page.Limit())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	return c.Render(http.StatusOK, "admin/users.html", echo.Map{
		"Users": users,
		"Page":  page,
		"Empty": emptyValue,
	})
}

// DeleteUser removes an account together with its posts, comments, follows
// and post images
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if id == currentUserID(c) {
		return echo.NewHTTPError(http.StatusBadRequest, "You cannot delete your own account")
	}
	ctx := c.Request().Context()

	images, err := h.postRepository.ListImagesByAuthor(ctx, id)
	if err != nil {
		return fmt.Errorf("list user images: %w", err)
	}
	err = h.userRepository.DeleteUser(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	for _, name := range images {
		h.removeImage(ctx, name)
	}
	logger.Info("admin deleted user", zap.Uint("user_id", id), zap.Uint("staff_id", currentUserID(c)))
	return c.Redirect(http.StatusFound, "/admin/users")
}
