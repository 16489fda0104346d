package storage

import (
	"context"
	"errors"
)

// Store persists small snapshots between runs, the way a browser keeps
// state in local storage.
type Store interface {
	// Get retrieves a value from the store.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the store.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the store.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the store.
	Clear(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

// ErrNotFound is returned when a key is not found.
var ErrNotFound = errors.New("key not found in store")
