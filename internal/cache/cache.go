// Package cache holds the byte stores behind the page cache.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrMiss = errors.New("cache: miss")

// Store is a TTL key/value store for rendered pages.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete drops key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// NoopStore never keeps anything. It is used when caching is disabled so
// every request observes fresh data.
type NoopStore struct{}

func (NoopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }

func (NoopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NoopStore) Delete(context.Context, string) error { return nil }
