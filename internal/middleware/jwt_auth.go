package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anonto42/yatube/internal/logger"
	"github.com/anonto42/yatube/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// SessionCookie carries the signed session token.
	SessionCookie = "session"

	userKey = "user"
)

// Sessions issues and verifies the HS256 tokens stored in the session cookie.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure}
}

// Issue signs a token for the given user.
func (s *Sessions) Issue(user *models.User) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies a token and returns its claims.
func (s *Sessions) Parse(tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Login issues a token for user and stores it in the session cookie.
func (s *Sessions) Login(c echo.Context, user *models.User) error {
	token, err := s.Issue(user)
	if err != nil {
		return fmt.Errorf("issue session: %w", err)
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Logout expires the session cookie.
func (s *Sessions) Logout(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// UserFinder is the part of the user repository the session loader needs.
type UserFinder interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// LoadUser resolves the session cookie into the current user. Requests with a
// missing or stale session continue anonymously.
func LoadUser(s *Sessions, users UserFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			claims, err := s.Parse(cookie.Value)
			if err != nil {
				logger.Debug("dropping invalid session", zap.Error(err))
				s.Logout(c)
				return next(c)
			}

			user, err := users.GetUserByID(c.Request().Context(), claims.UserID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.Logout(c)
				return next(c)
			}
			if err != nil {
				return fmt.Errorf("load session user: %w", err)
			}

			SetCurrentUser(c, user)
			return next(c)
		}
	}
}

// CurrentUser returns the signed-in user or nil.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get(userKey).(*models.User)
	return user
}

func SetCurrentUser(c echo.Context, user *models.User) {
	c.Set(userKey, user)
}

// LoginURL builds the login redirect target for the given path.
func LoginURL(next string) string {
	return "/auth/login?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// RequireLogin redirects anonymous requests to the login page.
func RequireLogin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return c.Redirect(http.StatusFound, LoginURL(c.Request().RequestURI))
			}
			return next(c)
		}
	}
}

// RequireStaff lets only staff users through.
func RequireStaff() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return c.Redirect(http.StatusFound, LoginURL(c.Request().RequestURI))
			}
			if !user.IsStaff {
				return echo.NewHTTPError(http.StatusForbidden, "Staff access required")
			}
			return next(c)
		}
	}
}
