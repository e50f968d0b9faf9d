package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotSupported is returned by stores that cannot perform an operation,
	// such as namespace flush on a plain cache backend. Callers branch on it
	// for degraded-mode behavior instead of failing the request.
	ErrNotSupported = errors.New("operation not supported by session store")
)

// Store is the capability interface for session record persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	Persist(ctx context.Context, key, value string, ttl time.Duration) error
	Fetch(ctx context.Context, key string) (string, bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// DeleteNamespace removes every record whose key belongs to the
	// namespace. Best effort: stores without pattern deletion return
	// ErrNotSupported.
	DeleteNamespace(ctx context.Context, namespace string) error
	Clear(ctx context.Context) error
}
