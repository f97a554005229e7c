package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const (
	// CSRFCookie holds the per-browser token.
	CSRFCookie = "_csrf"
	// CSRFField is the form field every POST form carries.
	CSRFField = "csrf_token"

	csrfKey = "csrf"
)

// CSRF checks the token of unsafe requests against the CSRF cookie. Forms
// send it in CSRFField, scripts in the X-CSRF-Token header.
func CSRF(secure bool) echo.MiddlewareFunc {
	return echomw.CSRFWithConfig(echomw.CSRFConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/health" || strings.HasPrefix(p, "/media/")
		},
		TokenLookup:    "form:" + CSRFField + ",header:" + echo.HeaderXCSRFToken,
		ContextKey:     csrfKey,
		CookieName:     CSRFCookie,
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: http.SameSiteLaxMode,
	})
}

// CSRFToken returns the token to embed in forms, or "" outside the CSRF middleware.
func CSRFToken(c echo.Context) string {
	token, _ := c.Get(csrfKey).(string)
	return token
}
