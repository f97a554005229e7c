package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/anonto42/yatube/internal/forms"
	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/pkg/firebase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenVerifier checks Firebase ID tokens.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebase.Identity, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	sessions       *middleware.Sessions
	firebaseAuth   TokenVerifier
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil, which
// disables Firebase sign-in.
func NewAuthHandler(userRepo repositories.UserRepository, sessions *middleware.Sessions, verifier TokenVerifier) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		sessions:       sessions,
		firebaseAuth:   verifier,
	}
}

// RegisterAuthRoutes registers authentication-related routes. limit guards
// the credential submissions.
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group, limit echo.MiddlewareFunc) {
	g.GET("/signup", h.SignupForm)
	g.POST("/signup", h.Signup, limit)
	g.GET("/login", h.LoginForm)
	g.POST("/login", h.Login, limit)
	g.GET("/logout", h.Logout)
	g.POST("/logout", h.Logout)
	if h.firebaseAuth != nil {
		g.POST("/firebase-login", h.FirebaseLogin, limit)
	}
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *AuthHandler) SignupForm(c echo.Context) error {
	return c.Render(http.StatusOK, "auth/signup.html", echo.Map{
		"Form":   models.SignupRequest{},
		"Errors": forms.Errors{},
	})
}

// Signup creates a local account and signs it in
func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	errs := forms.Validate(req)
	if !errs.Has("username") {
		exists, err := h.userRepository.UsernameExists(ctx, req.Username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			errs.Add("username", "A user with that username already exists.")
		}
	}
	if errs.Any() {
		req.Password = ""
		return c.Render(http.StatusOK, "auth/signup.html", echo.Map{"Form": req, "Errors": errs})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	logger.Info("user signed up", zap.Uint("user_id", user.ID), zap.String("username", user.Username))

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.Render(http.StatusOK, "auth/login.html", echo.Map{
		"Next":   safeNext(c.QueryParam("next")),
		"Form":   models.LoginRequest{},
		"Errors": forms.Errors{},
	})
}

// Login checks the credentials and starts a session
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid form submission")
	}
	next := safeNext(c.FormValue("next"))

	errs := forms.Validate(req)
	if errs.Any() {
		return h.renderLogin(c, next, req, errs)
	}

	user, err := h.userRepository.GetUserByUsername(c.Request().Context(), req.Username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load user: %w", err)
	}
	if err != nil || user.Password == "" ||
		bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		logger.Info("login failed", zap.String("username", req.Username), zap.String("remote_ip", c.RealIP()))
		errs.Add("", "Please enter a correct username and password.")
		return h.renderLogin(c, next, req, errs)
	}

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, next)
}

func (h *AuthHandler) renderLogin(c echo.Context, next string, req models.LoginRequest, errs forms.Errors) error {
	req.Password = ""
	return c.Render(http.StatusOK, "auth/login.html", echo.Map{
		"Next":   next,
		"Form":   req,
		"Errors": errs,
	})
}

// Logout ends the session
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c)
	return c.Redirect(http.StatusFound, "/")
}

// FirebaseLogin verifies a Firebase ID token and signs the matching account
// in, creating it on first use.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	ctx := c.Request().Context()

	idToken := c.FormValue("id_token")
	if idToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id_token is required")
	}

	identity, err := h.firebaseAuth.VerifyIDToken(ctx, idToken)
	if err != nil {
		logger.Info("firebase token rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		username, err := h.freeUsername(ctx, usernameFromIdentity(identity))
		if err != nil {
			return err
		}
		uid := identity.UID
		user = &models.User{
			Username:    username,
			Email:       identity.Email,
			FirebaseUID: &uid,
		}
		if err := h.userRepository.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		logger.Info("user created from firebase", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	case err != nil:
		return fmt.Errorf("load user: %w", err)
	case identity.Email != "" && identity.Email != user.Email:
		user.Email = identity.Email
		if err := h.userRepository.UpdateUser(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
	}

	if err := h.sessions.Login(c, user); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/")
}

var usernameStrip = regexp.MustCompile(`[^\w.@+-]`)

func usernameFromIdentity(id *firebase.Identity) string {
	base := id.Email
	if at := strings.IndexByte(base, '@'); at >= 0 {
		base = base[:at]
	}
	if base == "" {
		base = id.Name
	}
	base = usernameStrip.ReplaceAllString(base, "")
	if len(base) > 140 {
		base = base[:140]
	}
	if base == "" {
		base = "user"
	}
	return base
}

// freeUsername appends a counter to base until the name is valid and unused.
func (h *AuthHandler) freeUsername(ctx context.Context, base string) (string, error) {
	name := base
	for i := 1; ; i++ {
		if forms.ValidUsername(name) {
			exists, err := h.userRepository.UsernameExists(ctx, name)
			if err != nil {
				return "", fmt.Errorf("check username: %w", err)
			}
			if !exists {
				return name, nil
			}
		}
		name = base + strconv.Itoa(i)
	}
}
