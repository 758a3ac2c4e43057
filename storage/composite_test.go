package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/memcas"
	"xdao.co/skydb/storage/testkit"
)

// failingCAS fails every operation with err.
type failingCAS struct{ err error }

func (f failingCAS) Put(context.Context, []byte) (cid.Cid, error)  { return cid.Undef, f.err }
func (f failingCAS) Get(context.Context, cid.Cid) ([]byte, error) { return nil, f.err }
func (f failingCAS) Has(context.Context, cid.Cid) bool             { return false }

// lyingCAS returns the CID of different bytes.
type lyingCAS struct{ storage.CAS }

func (l lyingCAS) Put(ctx context.Context, _ []byte) (cid.Cid, error) {
	return cidutil.Sum([]byte("something else"))
}

func TestMultiCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.MultiCAS{Adapters: []storage.CAS{memcas.New(), memcas.New()}}
	})
}

func TestReplicatingCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.ReplicatingCAS{Backends: []storage.NamedCAS{
			{Name: "a", CAS: memcas.New()},
			{Name: "b", CAS: memcas.New()},
		}}
	})
}

func TestMultiCAS_FallsBackInOrder(t *testing.T) {
	ctx := context.Background()
	first, second := memcas.New(), memcas.New()
	id, err := second.Put(ctx, []byte("only in second"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	m := storage.MultiCAS{Adapters: []storage.CAS{first, second}}
	got, err := m.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "only in second" {
		t.Fatalf("unexpected bytes %q", got)
	}

	if _, err := m.Put(ctx, []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if first.Len() != 1 || second.Len() != 1 {
		t.Fatalf("Put should write only to the first adapter: first=%d second=%d", first.Len(), second.Len())
	}
}

func TestMultiCAS_StopsOnHardError(t *testing.T) {
	boom := errors.New("disk on fire")
	m := storage.MultiCAS{Adapters: []storage.CAS{failingCAS{err: boom}, memcas.New()}}
	id, _ := cidutil.Sum([]byte("x"))
	if _, err := m.Get(context.Background(), id); !errors.Is(err, boom) {
		t.Fatalf("got %v want %v", err, boom)
	}
}

func TestMultiCAS_NoAdapters(t *testing.T) {
	if _, err := (storage.MultiCAS{}).Put(context.Background(), []byte("x")); !errors.Is(err, storage.ErrNoBackends) {
		t.Fatalf("got %v want ErrNoBackends", err)
	}
}

func TestReplicatingCAS_PutAllWritesEverywhere(t *testing.T) {
	ctx := context.Background()
	a, b := memcas.New(), memcas.New()
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{{Name: "a", CAS: a}, {Name: "b", CAS: b}}}
	id, per, err := r.PutAll(ctx, []byte("replicated"))
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if len(per) != 2 || per["a"] != id || per["b"] != id {
		t.Fatalf("unexpected per-backend map: %v", per)
	}
	if !a.Has(ctx, id) || !b.Has(ctx, id) {
		t.Fatalf("expected object in both backends")
	}
}

func TestReplicatingCAS_DetectsMismatch(t *testing.T) {
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "good", CAS: memcas.New()},
		{Name: "liar", CAS: lyingCAS{memcas.New()}},
	}}
	if _, err := r.Put(context.Background(), []byte("payload")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("got %v want ErrCIDMismatch", err)
	}
}

func TestReplicatingCAS_PropagatesBackendError(t *testing.T) {
	boom := errors.New("quota exceeded")
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "good", CAS: memcas.New()},
		{Name: "full", CAS: failingCAS{err: boom}},
	}}
	if _, err := r.Put(context.Background(), []byte("payload")); !errors.Is(err, boom) {
		t.Fatalf("got %v want %v", err, boom)
	}
	if _, err := (storage.ReplicatingCAS{Backends: []storage.NamedCAS{{Name: "nil"}}}).Put(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil backend")
	}
}
