// Package securestore is the durable key-value store for auth material.
// Values are sealed with AES-GCM before hitting disk, so the SQLite file
// never contains plaintext secrets. The store is shared with other
// subsystems and tolerates external clearing between reads.
package securestore

import "context"

// Store is the secure persistent key-value contract consumed by the
// credential cache and diagnostics. Implementations must be durable across
// process restarts.
type Store interface {
	// GetString returns the value for key. ok is false when the key is
	// absent; absence is not an error.
	GetString(ctx context.Context, key string) (value string, ok bool, err error)

	// SetString stores value under key, overwriting any previous value.
	SetString(ctx context.Context, key, value string) error

	// GetBool returns the boolean under key, false when absent.
	GetBool(ctx context.Context, key string) (bool, error)

	// SetBool stores a boolean under key.
	SetBool(ctx context.Context, key string, value bool) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

// TxStore is implemented by stores that can group several writes into one
// atomic unit. Callers type-assert; plain stores fall back to sequential
// writes.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
