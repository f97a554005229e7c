package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(filepath.Join(t.TempDir(), "media"))
	require.NoError(t, err)
	ctx := context.Background()

	name := NewImageName(".png")
	assert.True(t, strings.HasPrefix(name, "posts/"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	require.NoError(t, store.Save(ctx, name, strings.NewReader("pixels")))

	rc, err := store.Open(ctx, name)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pixels", string(data))

	require.NoError(t, store.Delete(ctx, name))
	_, err = store.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, name), ErrNotFound)
}

func TestDiskStoreRejectsEscapingNames(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	for _, name := range []string{"", "../outside", "posts/../../x", "/abs", `posts\x`} {
		err := store.Save(context.Background(), name, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "outside"))
	assert.True(t, os.IsNotExist(err))
}
