package ports

import "context"

// PendingRegistry marks targets with a mutation in flight.
type PendingRegistry interface {
	// Acquire returns false when key is already held.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
