package skydb

import (
	"context"
	"crypto/ed25519"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/skydb/registry"
	"xdao.co/skydb/skyfile"
)

// mockTransport is a registry.Transport driven by funcs. It records the
// order of calls in a shared event log when one is attached.
type mockTransport struct {
	LookupFunc func(ctx context.Context, pub ed25519.PublicKey, dataKey []byte) (registry.SignedEntry, error)
	UpdateFunc func(ctx context.Context, pub ed25519.PublicKey, se registry.SignedEntry) error

	mu      sync.Mutex
	lookups int
	updates []registry.SignedEntry
	events  *eventLog
}

func (m *mockTransport) Lookup(ctx context.Context, pub ed25519.PublicKey, dataKey []byte) (registry.SignedEntry, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	m.events.add("lookup")
	if m.LookupFunc == nil {
		return registry.SignedEntry{}, registry.ErrNotFound
	}
	return m.LookupFunc(ctx, pub, dataKey)
}

func (m *mockTransport) Update(ctx context.Context, pub ed25519.PublicKey, se registry.SignedEntry) error {
	m.mu.Lock()
	m.updates = append(m.updates, se.Clone())
	m.mu.Unlock()
	m.events.add("update")
	if m.UpdateFunc == nil {
		return nil
	}
	return m.UpdateFunc(ctx, pub, se)
}

func (m *mockTransport) lookupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

func (m *mockTransport) submitted() []registry.SignedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]registry.SignedEntry(nil), m.updates...)
}

// mockBlobs is a BlobStore driven by funcs.
type mockBlobs struct {
	PutFunc func(ctx context.Context, f *skyfile.SkyFile) (cid.Cid, error)
	GetFunc func(ctx context.Context, id cid.Cid) (*skyfile.SkyFile, error)

	mu     sync.Mutex
	puts   int
	gets   int
	events *eventLog
}

func (m *mockBlobs) Put(ctx context.Context, f *skyfile.SkyFile) (cid.Cid, error) {
	m.mu.Lock()
	m.puts++
	m.mu.Unlock()
	m.events.add("put")
	return m.PutFunc(ctx, f)
}

func (m *mockBlobs) Get(ctx context.Context, id cid.Cid) (*skyfile.SkyFile, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	m.events.add("get")
	return m.GetFunc(ctx, id)
}

func (m *mockBlobs) counts() (puts, gets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts, m.gets
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}
