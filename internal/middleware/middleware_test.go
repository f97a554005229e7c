package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/anonto42/yatube/internal/cache"
	"github.com/anonto42/yatube/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUsers map[uint]*models.User

func (f fakeUsers) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func TestSessionsRoundTrip(t *testing.T) {
	s := NewSessions("secret", time.Hour, false)
	token, err := s.Issue(&models.User{ID: 7, Username: "sarah"})
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "sarah", claims.Username)

	_, err = NewSessions("other", time.Hour, false).Parse(token)
	assert.Error(t, err, "signature checked")

	expired, err := NewSessions("secret", -time.Minute, false).Issue(&models.User{ID: 7})
	require.NoError(t, err)
	_, err = s.Parse(expired)
	assert.Error(t, err, "expiry checked")
}

func TestLoadUser(t *testing.T) {
	e := echo.New()
	s := NewSessions("secret", time.Hour, false)
	users := fakeUsers{1: {ID: 1, Username: "sarah"}}

	handler := LoadUser(s, users)(func(c echo.Context) error {
		if u := CurrentUser(c); u != nil {
			return c.String(http.StatusOK, u.Username)
		}
		return c.String(http.StatusOK, "anonymous")
	})

	serve := func(cookie *http.Cookie) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if cookie != nil {
			req.AddCookie(cookie)
		}
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	assert.Equal(t, "anonymous", serve(nil).Body.String())

	token, err := s.Issue(users[1])
	require.NoError(t, err)
	assert.Equal(t, "sarah", serve(&http.Cookie{Name: SessionCookie, Value: token}).Body.String())

	rec := serve(&http.Cookie{Name: SessionCookie, Value: "garbage"})
	assert.Equal(t, "anonymous", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), SessionCookie+"=;", "bad cookie cleared")

	gone, err := s.Issue(&models.User{ID: 99})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", serve(&http.Cookie{Name: SessionCookie, Value: gone}).Body.String())
}

func TestRequireLoginAndStaff(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	req := httptest.NewRequest(http.MethodGet, "/new", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, RequireLogin()(ok)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?next=/new", rec.Header().Get(echo.HeaderLocation))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec = httptest.NewRecorder()
	c := e.NewContext(req, rec)
	SetCurrentUser(c, &models.User{ID: 1, Username: "sarah"})
	err := RequireStaff()(ok)(c)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusForbidden, he.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	SetCurrentUser(c, &models.User{ID: 2, Username: "boss", IsStaff: true})
	require.NoError(t, RequireStaff()(ok)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLoginURLEscapesQuery(t *testing.T) {
	assert.Equal(t, "/auth/login?next=/sarah/1/edit", LoginURL("/sarah/1/edit"))
	assert.Equal(t, "/auth/login?next=/admin/posts%3Fq%3Da%26date%3Dweek", LoginURL("/admin/posts?q=a&date=week"))
}

func TestPageCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := cache.NewRedisStore(client, "test:")

	e := echo.New()
	calls := 0
	handler := PageCache(store, 20*time.Second)(func(c echo.Context) error {
		calls++
		if c.QueryParam("fail") != "" {
			return c.String(http.StatusInternalServerError, "boom")
		}
		return c.HTML(http.StatusOK, "<p>render "+strings.Repeat("x", calls)+"</p>")
	})

	get := func(target string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		require.NoError(t, handler(e.NewContext(req, rec)))
		return rec
	}

	first := get("/")
	second := get("/")
	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, second.Header().Get(echo.HeaderContentType))

	get("/?page=2")
	assert.Equal(t, 2, calls, "key includes the query")

	get("/?fail=1")
	get("/?fail=1")
	assert.Equal(t, 4, calls, "errors are not cached")

	mr.FastForward(21 * time.Second)
	get("/")
	assert.Equal(t, 5, calls, "entry expired")
}

func TestPageCacheKeyedByUser(t *testing.T) {
	e := echo.New()
	store := cache.NewLRUStore(16, time.Minute)
	calls := 0
	handler := PageCache(store, time.Minute)(func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "page")
	})

	for _, user := range []*models.User{nil, {ID: 1}, {ID: 1}, {ID: 2}} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		if user != nil {
			SetCurrentUser(c, user)
		}
		require.NoError(t, handler(c))
	}
	assert.Equal(t, 3, calls)
}

func TestEvictPage(t *testing.T) {
	e := echo.New()
	store := cache.NewLRUStore(16, time.Minute)
	calls := 0
	handler := PageCache(store, time.Minute)(func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "profile")
	})
	get := func(user *models.User) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/bob", nil), httptest.NewRecorder())
		if user != nil {
			SetCurrentUser(c, user)
		}
		require.NoError(t, handler(c))
	}

	sarah := &models.User{ID: 1}
	get(sarah)
	get(nil)
	get(sarah)
	assert.Equal(t, 2, calls)

	EvictPage(context.Background(), store, sarah.ID, "/bob")
	get(sarah)
	get(nil)
	assert.Equal(t, 3, calls, "only the evicted viewer re-renders")
	assert.Equal(t, "page:1:/bob", PageKey(1, "/bob"))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	t.Cleanup(rl.Stop)

	e := echo.New()
	handler := rl.Middleware()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	post := func(ip string) error {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		return handler(e.NewContext(req, httptest.NewRecorder()))
	}

	require.NoError(t, post("10.0.0.1"))
	require.NoError(t, post("10.0.0.1"))
	err := post("10.0.0.1")
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.Code)

	require.NoError(t, post("10.0.0.2"), "limits are per client")

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	require.NoError(t, handler(e.NewContext(req, httptest.NewRecorder())), "GET is not limited")

	rl.Stop()
	rl.Stop()
}
