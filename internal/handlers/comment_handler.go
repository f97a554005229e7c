package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/anonto42/yatube/internal/forms"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository repositories.CommentRepository
	postRepository    repositories.PostRepository
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository) *CommentHandler {
	return &CommentHandler{
		commentRepository: commentRepo,
		postRepository:    postRepo,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/:username/:post_id/comment", h.AddComment, middleware.RequireLogin())
}

// AddComment attaches a comment to a post and always returns to the post page.
// A rejected submission is reported through a flash message.
func (h *CommentHandler) AddComment(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := parseID(c.Param("post_id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	post, err := h.postRepository.GetPostByAuthor(ctx, c.Param("username"), id)
	if err != nil {
		return notFoundOr(err, "post")
	}
	target := postURL(post.Author.Username, post.ID)

	var req models.CommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.Text = strings.TrimSpace(req.Text)

	if errs := forms.Validate(req); errs.Any() {
		logger.Info("comment rejected",
			zap.Uint("post_id", post.ID),
			zap.Uint("user_id", currentUserID(c)),
			zap.Strings("errors", errs.Get("text")),
		)
		setFlash(c, "Your comment was not added: "+strings.Join(errs.Get("text"), " "))
		return c.Redirect(http.StatusFound, target)
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: currentUserID(c),
		Text:     req.Text,
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return c.Redirect(http.StatusFound, target)
}
