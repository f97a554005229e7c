package forms

import (
	"bytes"
	"image"
	"image/png"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/anonto42/yatube/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePostRequest(t *testing.T) {
	errs := Validate(&models.PostRequest{Text: "", Group: "x"})
	assert.True(t, errs.Has("text"))
	assert.True(t, errs.Has("group"))
	assert.Equal(t, []string{"This field is required."}, errs.Get("text"))

	assert.False(t, Validate(&models.PostRequest{Text: "hello", Group: "3"}).Any())
	assert.False(t, Validate(&models.PostRequest{Text: "hello"}).Any())
}

func TestValidateGroupSlug(t *testing.T) {
	errs := Validate(&models.GroupRequest{Title: "Cats", Slug: "not a slug", Description: "d"})
	assert.True(t, errs.Has("slug"))

	assert.False(t, Validate(&models.GroupRequest{Title: "Cats", Slug: "cats_and-dogs2", Description: "d"}).Any())
}

func TestValidateUsername(t *testing.T) {
	for _, name := range []string{"new", "Follow", "admin", "with space", "slash/name"} {
		errs := Validate(&models.SignupRequest{Username: name, Password: "longenough"})
		assert.True(t, errs.Has("username"), name)
	}
	errs := Validate(&models.SignupRequest{Username: "sarah.k+blog@x", Password: "longenough"})
	assert.False(t, errs.Any())

	errs = Validate(&models.SignupRequest{Username: "sarah", Password: "short"})
	require.True(t, errs.Has("password"))
	assert.Contains(t, errs.Get("password")[0], "at least 8")
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["image"][0]
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestCheckImage(t *testing.T) {
	ext, err := CheckImage(fileHeader(t, "pic.txt", pngBytes(t)), 1<<20)
	require.NoError(t, err)
	assert.Equal(t, ".png", ext)

	_, err = CheckImage(fileHeader(t, "fake.jpg", []byte("just some words, not pixels")), 1<<20)
	assert.ErrorIs(t, err, ErrNotAnImage)

	_, err = CheckImage(fileHeader(t, "big.png", pngBytes(t)), 10)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "Ensure this file is at most"))
}
