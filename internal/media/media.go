// Package media stores uploaded post images.
package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("media: object not found")
	ErrInvalidName = errors.New("media: invalid object name")
)

// Store saves and serves media objects addressed by slash-separated names.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// NewImageName returns a fresh object name for a post image.
func NewImageName(ext string) string {
	return "posts/" + uuid.NewString() + ext
}

// cleanName rejects names that would escape the store root.
func cleanName(name string) (string, error) {
	if name == "" || strings.Contains(name, "\\") {
		return "", ErrInvalidName
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned != name {
		return "", ErrInvalidName
	}
	return cleaned, nil
}
