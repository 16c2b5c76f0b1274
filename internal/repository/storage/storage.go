package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

// Backend is the key-value door behind the state repository. Implementations
// keep opaque payloads under a key and signal writes made by other holders of
// the same storage.
type Backend interface {
	// Get returns the payload stored under key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores the payload under key, replacing whatever was there.
	Set(ctx context.Context, key, value string) error

	// Watch reports writes to key. The returned channel coalesces pending
	// signals and is closed once the returned cancel func is called.
	Watch(ctx context.Context, key string) (<-chan struct{}, func())

	Close() error
}
