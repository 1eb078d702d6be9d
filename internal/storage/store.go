// Package storage persists the set of published item fingerprints.
//
// The set only grows: there is no delete operation, and every Add is durable
// before it returns so a crash right after a publish cannot cause a repost.
package storage

import "context"

// Store is a persistent, append-only fingerprint set.
type Store interface {
	Contains(ctx context.Context, fingerprint string) (bool, error)
	Add(ctx context.Context, fingerprint string) error
	Count(ctx context.Context) (int, error)
	Close() error
}
