// Package memregistry is an in-memory registry.Transport.
//
// It enforces the same rules as a real registry: updates must be signed by
// the key they are filed under and must carry a strictly greater revision.
package memregistry

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"xdao.co/skydb/registry"
)

// Registry is safe for concurrent use. The zero value is not usable; call New.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registry.SignedEntry
}

var _ registry.Transport = (*Registry)(nil)

func New() *Registry {
	return &Registry{entries: make(map[string]registry.SignedEntry)}
}

func (r *Registry) Lookup(ctx context.Context, pub ed25519.PublicKey, dataKey []byte) (registry.SignedEntry, error) {
	if err := ctx.Err(); err != nil {
		return registry.SignedEntry{}, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return registry.SignedEntry{}, registry.E(registry.KindEncoding, "memregistry.Lookup", "malformed public key", nil)
	}
	r.mu.RLock()
	se, ok := r.entries[registry.EntryKey(pub, dataKey)]
	r.mu.RUnlock()
	if !ok {
		return registry.SignedEntry{}, registry.ErrNotFound
	}
	return se.Clone(), nil
}

func (r *Registry) Update(ctx context.Context, pub ed25519.PublicKey, se registry.SignedEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := registry.Admit(pub, se); err != nil {
		return err
	}
	key := registry.EntryKey(pub, se.DataKey)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.entries[key]; ok && cur.Revision >= se.Revision {
		return fmt.Errorf("%w: stored revision %d, submitted %d", registry.ErrConflict, cur.Revision, se.Revision)
	}
	r.entries[key] = se.Clone()
	return nil
}

// Len returns the number of stored entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
