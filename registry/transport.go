package registry

import (
	"context"
	"crypto/ed25519"
)

// Transport looks up and submits signed entries.
//
// Lookup returns ErrNotFound (or an error wrapping it) when the key has no
// entry. Update returns ErrConflict (or an error wrapping it) when the
// registry already holds an equal or newer revision. Any other error is a
// transport failure.
//
// Implementations must not retain or mutate the byte slices they are given.
type Transport interface {
	Lookup(ctx context.Context, pub ed25519.PublicKey, dataKey []byte) (SignedEntry, error)
	Update(ctx context.Context, pub ed25519.PublicKey, se SignedEntry) error
}
