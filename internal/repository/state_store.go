package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state.
// Implementations: Redis (production) or in-memory (local dev / single instance).
//
// Get and MGet report a missing key as a nil slice, never as an error.
// MSet writes all pairs or none; it is the only multi-key atomicity offered.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MSet(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, keys ...string) error
}
