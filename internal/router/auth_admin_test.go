package router

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/anonto42/yatube/internal/media"
	"github.com/anonto42/yatube/internal/middleware"
	"github.com/anonto42/yatube/internal/models"
	"github.com/anonto42/yatube/internal/repositories"
	"github.com/anonto42/yatube/pkg/firebase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func sessionCookie(t *testing.T, rec interface{ Result() *http.Response }) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestSignupLoginLogout(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.get("/auth/signup", nil).Code)

	rec := app.postForm("/auth/signup", url.Values{"username": {"new"}, "password": {"password123"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid username.", "reserved route word")

	rec = app.postForm("/auth/signup", url.Values{
		"username": {"sarah"},
		"email":    {"sarah@example.com"},
		"password": {"password123"},
	}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", location(rec))
	cookie := sessionCookie(t, rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	sarah, err := app.users.GetUserByUsername(context.Background(), "sarah")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", sarah.Password, "password stored hashed")

	home := app.do(http.MethodGet, "/", nil, "", nil, cookie)
	assert.Contains(t, home.Body.String(), "@sarah")

	rec = app.postForm("/auth/signup", url.Values{"username": {"sarah"}, "password": {"password123"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "A user with that username already exists.")

	rec = app.postForm("/auth/login", url.Values{"username": {"sarah"}, "password": {"wrong-password"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please enter a correct username and password.")
	assert.Nil(t, sessionCookie(t, rec))

	rec = app.postForm("/auth/login", url.Values{"username": {"sarah"}, "password": {"password123"}, "next": {"/follow"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/follow", location(rec))
	require.NotNil(t, sessionCookie(t, rec))

	rec = app.postForm("/auth/login", url.Values{"username": {"sarah"}, "password": {"password123"}, "next": {"//evil.example"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", location(rec), "off-site next refused")

	rec = app.get("/auth/login?next=/new", nil)
	assert.Contains(t, rec.Body.String(), `value="/new"`)

	rec = app.do(http.MethodGet, "/auth/logout", nil, "", nil, cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, strings.Join(rec.Header().Values("Set-Cookie"), "\n"), middleware.SessionCookie+"=;")
}

func TestAuthRateLimit(t *testing.T) {
	app := newTestApp(t, func(d *Deps) {
		d.AuthLimiter = middleware.NewRateLimiter(1, 2)
		t.Cleanup(d.AuthLimiter.Stop)
	})

	form := url.Values{"username": {"sarah"}, "password": {"whatever1"}}
	assert.Equal(t, http.StatusOK, app.postForm("/auth/login", form, nil).Code)
	assert.Equal(t, http.StatusOK, app.postForm("/auth/login", form, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, app.postForm("/auth/login", form, nil).Code)
	assert.Equal(t, http.StatusOK, app.get("/auth/login", nil).Code)
}

func TestFirebaseLogin(t *testing.T) {
	verifier := &fakeVerifier{identities: map[string]*firebase.Identity{
		"good-token":  {UID: "uid-1", Email: "sarah@example.com", Name: "Sarah"},
		"other-token": {UID: "uid-2", Email: "sarah@elsewhere.example"},
	}}
	app := newTestApp(t, withFirebase(verifier))
	ctx := context.Background()

	rec := app.postForm("/auth/firebase-login", url.Values{"id_token": {"bad"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.postForm("/auth/firebase-login", url.Values{"id_token": {"good-token"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.NotNil(t, sessionCookie(t, rec))

	user, err := app.users.GetUserByFirebaseUID(ctx, "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "sarah", user.Username)

	rec = app.postForm("/auth/firebase-login", url.Values{"id_token": {"good-token"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	count, err := app.users.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count, "second login reuses the account")

	rec = app.postForm("/auth/firebase-login", url.Values{"id_token": {"other-token"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	other, err := app.users.GetUserByFirebaseUID(ctx, "uid-2")
	require.NoError(t, err)
	assert.Equal(t, "sarah1", other.Username, "username de-duplicated")
}

func TestFirebaseLoginDisabledWithoutVerifier(t *testing.T) {
	app := newTestApp(t)
	rec := app.postForm("/auth/firebase-login", url.Values{"id_token": {"x"}}, nil)
	assert.NotEqual(t, http.StatusFound, rec.Code)
	count, err := app.users.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdminAccess(t *testing.T) {
	app := newTestApp(t)
	sarah := app.createUser("sarah", false)
	boss := app.createUser("boss", true)

	rec := app.get("/admin", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?next=/admin", location(rec))

	assert.Equal(t, http.StatusForbidden, app.get("/admin", sarah).Code)
	assert.Equal(t, http.StatusForbidden, app.get("/admin/posts", sarah).Code)

	rec = app.get("/admin", boss)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Administration")
}

func TestAdminGroups(t *testing.T) {
	app := newTestApp(t)
	boss := app.createUser("boss", true)
	sarah := app.createUser("sarah", false)
	ctx := context.Background()

	form := url.Values{"title": {"Cats"}, "slug": {"cats"}, "description": {"All about cats"}}
	rec := app.postForm("/admin/groups", form, boss)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/groups", location(rec))

	group, err := app.groups.GetGroupBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, "Cats", group.Title)

	rec = app.postForm("/admin/groups", form, boss)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Group with this Slug already exists.")

	rec = app.postForm("/admin/groups", url.Values{"title": {"Bad"}, "slug": {"bad slug"}, "description": {"d"}}, boss)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid slug")

	assert.Equal(t, http.StatusForbidden, app.postForm("/admin/groups", url.Values{"title": {"X"}, "slug": {"x"}, "description": {"d"}}, sarah).Code)

	post := &models.Post{Text: "in cats", AuthorID: sarah.ID, GroupID: &group.ID}
	require.NoError(t, app.posts.CreatePost(ctx, post))

	rec = app.postForm(fmt.Sprintf("/admin/groups/%d/delete", group.ID), nil, boss)
	assert.Equal(t, http.StatusFound, rec.Code)
	got, err := app.posts.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID, "post kept without a group")
	assert.Equal(t, http.StatusNotFound, app.get("/group/cats", nil).Code)
}

func TestAdminPostsAndComments(t *testing.T) {
	app := newTestApp(t)
	boss := app.createUser("boss", true)
	sarah := app.createUser("sarah", false)
	ctx := context.Background()

	keep := app.createPost(sarah, "keep this one")
	drop := app.createPost(sarah, "drop this one")
	require.NoError(t, app.comments.CreateComment(ctx, &models.Comment{PostID: drop.ID, AuthorID: sarah.ID, Text: "doomed comment"}))
	require.NoError(t, app.comments.CreateComment(ctx, &models.Comment{PostID: keep.ID, AuthorID: sarah.ID, Text: "spam comment"}))

	rec := app.get("/admin/posts?q=DROP", boss)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "drop this one")
	assert.NotContains(t, rec.Body.String(), "keep this one")
	assert.Contains(t, rec.Body.String(), "-empty-", "missing group placeholder")

	assert.Contains(t, app.get("/admin/posts?date=today", boss).Body.String(), "keep this one")

	rec = app.postForm(fmt.Sprintf("/admin/posts/%d/delete", drop.ID), nil, boss)
	assert.Equal(t, http.StatusFound, rec.Code)
	_, err := app.posts.GetPostByID(ctx, drop.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	n, err := app.comments.CountComments(ctx, "doomed")
	require.NoError(t, err)
	assert.Zero(t, n, "comments removed with their post")

	rec = app.get("/admin/comments?q=spam", boss)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "spam comment")

	comments, err := app.comments.ListComments(ctx, "spam", 0, 10)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	rec = app.postForm(fmt.Sprintf("/admin/comments/%d/delete", comments[0].ID), nil, boss)
	assert.Equal(t, http.StatusFound, rec.Code)
	n, err = app.comments.CountComments(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, http.StatusNotFound, app.postForm("/admin/posts/999/delete", nil, boss).Code)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	app := newTestApp(t)
	boss := app.createUser("boss", true)
	sarah := app.createUser("sarah", false)
	bob := app.createUser("bob", false)
	ctx := context.Background()

	post := app.createPost(sarah, "sarah's post")
	require.NoError(t, app.comments.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: bob.ID, Text: "bob replies"}))
	require.NoError(t, app.follows.CreateFollow(ctx, bob.ID, sarah.ID))

	body := app.get("/admin/users", boss).Body.String()
	assert.True(t, strings.Contains(body, "sarah") && strings.Contains(body, "bob"))

	rec := app.postForm(fmt.Sprintf("/admin/users/%d/delete", sarah.ID), nil, boss)
	assert.Equal(t, http.StatusFound, rec.Code)

	assert.Zero(t, app.countPosts())
	n, err := app.comments.CountComments(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	following, err := app.follows.CountFollowing(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, following)
	assert.Equal(t, http.StatusNotFound, app.get("/sarah", nil).Code)

	assert.Equal(t, http.StatusBadRequest, app.postForm(fmt.Sprintf("/admin/users/%d/delete", boss.ID), nil, boss).Code)

	posts, err := app.posts.ListPosts(ctx, repositories.PostFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestAdminDeleteUserRemovesImages(t *testing.T) {
	app := newTestApp(t)
	boss := app.createUser("boss", true)
	sarah := app.createUser("sarah", false)
	bob := app.createUser("bob", false)
	ctx := context.Background()

	for _, author := range []*models.User{sarah, sarah, bob} {
		rec := app.postMultipart("/new", map[string]string{"text": author.Username + " pic"}, pngBytes(t), author)
		require.Equal(t, http.StatusFound, rec.Code)
	}
	sarahImages, err := app.posts.ListImagesByAuthor(ctx, sarah.ID)
	require.NoError(t, err)
	require.Len(t, sarahImages, 2)
	bobImages, err := app.posts.ListImagesByAuthor(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobImages, 1)

	rec := app.postForm(fmt.Sprintf("/admin/users/%d/delete", sarah.ID), nil, boss)
	require.Equal(t, http.StatusFound, rec.Code)

	for _, name := range sarahImages {
		_, err := app.media.Open(ctx, name)
		assert.ErrorIs(t, err, media.ErrNotFound, name)
		assert.Equal(t, http.StatusNotFound, app.get("/media/"+name, nil).Code)
	}
	rc, err := app.media.Open(ctx, bobImages[0])
	require.NoError(t, err, "other users' images stay")
	require.NoError(t, rc.Close())
}
