package redis

import (
	"context"
	"fmt"
)

type counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// CursorStore implements selection.CursorStore with INCR, so every worker
// sharing the Redis instance advances the same rotation.
type CursorStore struct {
	counter counter
}

// NewCursorStore creates a CursorStore. *Cache satisfies counter.
func NewCursorStore(c counter) *CursorStore {
	return &CursorStore{counter: c}
}

// Next increments the cursor at key and returns its value before the increment.
func (s *CursorStore) Next(ctx context.Context, key string) (uint64, error) {
	n, err := s.counter.Incr(ctx, PrefixCursor+key)
	if err != nil {
		return 0, fmt.Errorf("cursor %s: %w", key, err)
	}
	if n < 1 {
		return 0, fmt.Errorf("cursor %s: unexpected value %d", key, n)
	}
	return uint64(n - 1), nil
}
