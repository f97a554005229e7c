package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LRUStore is an in-process store with a single TTL fixed at construction;
// the ttl passed to Set is ignored.
type LRUStore struct {
	lru *expirable.LRU[string, []byte]
}

func NewLRUStore(size int, ttl time.Duration) *LRUStore {
	if size <= 0 {
		size = 512
	}
	return &LRUStore{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *LRUStore) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := s.lru.Get(key); ok {
		return v, nil
	}
	return nil, ErrMiss
}

func (s *LRUStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

func (s *LRUStore) Delete(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}
