package ports

import "context"

// Store is string-keyed, string-valued durable client storage
type Store interface {
	// Get returns core.ErrNotFound when the key is absent
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Delete removes the keys; absent keys are ignored
	Delete(ctx context.Context, keys ...string) error
}
