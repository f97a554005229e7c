package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/yatube/internal/forms"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/media"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostHandler handles creating, viewing and editing posts
type PostHandler struct {
	postRepository    repositories.PostRepository
	groupRepository   repositories.GroupRepository
	commentRepository repositories.CommentRepository
	mediaStore        media.Store
	maxUploadBytes    int64
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	groupRepo repositories.GroupRepository,
	commentRepo repositories.CommentRepository,
	store media.Store,
	maxUploadBytes int64,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		groupRepository:   groupRepo,
		commentRepository: commentRepo,
		mediaStore:        store,
		maxUploadBytes:    maxUploadBytes,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	login := middleware.RequireLogin()
	g.GET("/new", h.NewPost, login)
	g.POST("/new", h.CreatePost, login)
	g.GET("/:username/:post_id", h.PostView)
	g.GET("/:username/:post_id/edit", h.EditPost, login)
	g.POST("/:username/:post_id/edit", h.UpdatePost, login)
}

// postSubmission is a bound and checked post form.
type postSubmission struct {
	req     models.PostRequest
	groupID *uint
	image   *multipart.FileHeader
	ext     string
	errs    forms.Errors
}

func (h *PostHandler) readPostForm(c echo.Context) (*postSubmission, error) {
	sub := &postSubmission{}
	if err := c.Bind(&sub.req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	sub.req.Text = strings.TrimSpace(sub.req.Text)
	sub.errs = forms.Validate(sub.req)

	if sub.req.Group != "" && !sub.errs.Has("group") {
		id, err := strconv.ParseUint(sub.req.Group, 10, 64)
		if err == nil {
			_, err = h.groupRepository.GetGroupByID(c.Request().Context(), uint(id))
		}
		switch {
		case err == nil:
			gid := uint(id)
			sub.groupID = &gid
		case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, strconv.ErrSyntax), errors.Is(err, strconv.ErrRange):
			sub.errs.Add("group", "Select a valid choice. That choice is not one of the available choices.")
		default:
			return nil, fmt.Errorf("load group: %w", err)
		}
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		ext, err := forms.CheckImage(fh, h.maxUploadBytes)
		if err != nil {
			sub.errs.Add("image", err.Error())
		} else {
			sub.image, sub.ext = fh, ext
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid file upload")
	}
	return sub, nil
}

// storeImage saves the uploaded image and returns its object name.
func (h *PostHandler) storeImage(ctx context.Context, sub *postSubmission) (string, error) {
	f, err := sub.image.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	name := media.NewImageName(sub.ext)
	if err := h.mediaStore.Save(ctx, name, f); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return name, nil
}

func (h *PostHandler) discardImage(ctx context.Context, name string) {
	if name == "" {
		return
	}
	if err := h.mediaStore.Delete(ctx, name); err != nil && !errors.Is(err, media.ErrNotFound) {
		logger.Warn("failed to delete image", zap.String("image", name), zap.Error(err))
	}
}

func (h *PostHandler) renderForm(c echo.Context, post *models.Post, req models.PostRequest, errs forms.Errors) error {
	groups, err := h.groupRepository.ListGroups(c.Request().Context())
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	return c.Render(http.StatusOK, "new.html", echo.Map{
		"Post":   post,
		"Form":   req,
		"Groups": groups,
		"Errors": errs,
	})
}

// NewPost renders an empty post form
func (h *PostHandler) NewPost(c echo.Context) error {
	return h.renderForm(c, nil, models.PostRequest{}, forms.Errors{})
}

// CreatePost publishes a post owned by the current user
func (h *PostHandler) CreatePost(c echo.Context) error {
	ctx := c.Request().Context()

	sub, err := h.readPostForm(c)
	if err != nil {
		return err
	}
	if sub.errs.Any() {
		return h.renderForm(c, nil, sub.req, sub.errs)
	}

	post := &models.Post{
		Text:     sub.req.Text,
		AuthorID: currentUserID(c),
		GroupID:  sub.groupID,
	}
	if sub.image != nil {
		if post.Image, err = h.storeImage(ctx, sub); err != nil {
			return err
		}
	}

	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		h.discardImage(ctx, post.Image)
		return fmt.Errorf("create post: %w", err)
	}

	logger.Info("post created", zap.Uint("post_id", post.ID), zap.Uint("author_id", post.AuthorID))
	return c.Redirect(http.StatusFound, "/")
}

// loadPost resolves the username and post id path parameters.
func (h *PostHandler) loadPost(c echo.Context) (*models.Post, error) {
	id, ok := parseID(c.Param("post_id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	post, err := h.postRepository.GetPostByAuthor(c.Request().Context(), c.Param("username"), id)
	if err != nil {
		return nil, notFoundOr(err, "post")
	}
	return post, nil
}

// PostView shows one post with its comments
func (h *PostHandler) PostView(c echo.Context) error {
	ctx := c.Request().Context()

	post, err := h.loadPost(c)
	if err != nil {
		return err
	}

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, post.ID)
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	postCount, err := h.postRepository.CountPosts(ctx, repositories.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}

	return c.Render(http.StatusOK, "post.html", echo.Map{
		"Post":      post,
		"PostCount": postCount,
		"Comments":  comments,
		"Flash":     popFlash(c),
		"Errors":    forms.Errors{},
	})
}

// EditPost renders the form bound to an existing post. Only its author may edit.
func (h *PostHandler) EditPost(c echo.Context) error {
	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	if post.AuthorID != currentUserID(c) {
		return c.Redirect(http.StatusFound, postURL(post.Author.Username, post.ID))
	}

	req := models.PostRequest{Text: post.Text}
	if post.GroupID != nil {
		req.Group = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return h.renderForm(c, post, req, forms.Errors{})
}

// UpdatePost saves an edited post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	ctx := c.Request().Context()

	post, err := h.loadPost(c)
	if err != nil {
		return err
	}
	target := postURL(post.Author.Username, post.ID)
	if post.AuthorID != currentUserID(c) {
		return c.Redirect(http.StatusFound, target)
	}

	sub, err := h.readPostForm(c)
	if err != nil {
		return err
	}
	if sub.errs.Any() {
		return h.renderForm(c, post, sub.req, sub.errs)
	}

	previous := post.Image
	switch {
	case sub.image != nil:
		if post.Image, err = h.storeImage(ctx, sub); err != nil {
			return err
		}
	case sub.req.ImageClear == "true" || sub.req.ImageClear == "on":
		post.Image = ""
	}
	post.Text = sub.req.Text
	post.GroupID = sub.groupID
	post.Group = nil

	if err := h.postRepository.UpdatePost(ctx, post); err != nil {
		if post.Image != previous {
			h.discardImage(ctx, post.Image)
		}
		return fmt.Errorf("update post: %w", err)
	}
	if previous != post.Image {
		h.discardImage(ctx, previous)
	}
	return c.Redirect(http.StatusFound, target)
}
