// Package kv provides the key-value persistence substrate the project store
// mirrors itself into. Every backend stores opaque byte values under string keys.
package kv

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("kv: key not found")
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
	ErrUnavailable   = errors.New("kv: store unavailable")
)

// Store is a key-value slot store. Get returns ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// DefaultQuotaBytes mirrors the per-origin budget browsers give local storage.
const DefaultQuotaBytes = 5 << 20

type quotaStore struct {
	Store
	max int
}

// WithQuota rejects writes larger than maxBytes with ErrQuotaExceeded.
// A non-positive maxBytes disables the check.
func WithQuota(s Store, maxBytes int) Store {
	if maxBytes <= 0 {
		return s
	}
	return &quotaStore{Store: s, max: maxBytes}
}

func (q *quotaStore) Put(ctx context.Context, key string, value []byte) error {
	if len(key)+len(value) > q.max {
		return fmt.Errorf("%w: %d bytes over a %d byte budget", ErrQuotaExceeded, len(key)+len(value), q.max)
	}
	return q.Store.Put(ctx, key, value)
}
