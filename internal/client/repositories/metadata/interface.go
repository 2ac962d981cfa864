// Package metadata is the key/value table behind the persisted session
// store. Values are opaque bytes; a missing key reads as (nil, nil).
package metadata

import "context"

// Repository is implemented by SQLiteRepository over either a *sql.DB or a
// transaction.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
