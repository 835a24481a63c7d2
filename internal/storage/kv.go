package storage

import "context"

//go:generate moq -out kv_mock.go . KVStore

// KVStore is the small key-value persistence capability used for
// process-local state: the device identifier and the auth session.
// Injected rather than accessed as ambient state so tests can
// substitute an in-memory store.
type KVStore interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound when no value exists.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key, value string) error

	// Delete removes the value stored under key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
