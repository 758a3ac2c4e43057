//go:build integration

package pgregistry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"xdao.co/skydb/keys"
	"xdao.co/skydb/registry"
)

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// getDSN returns the DSN of a shared postgres container, starting it if needed.
func getDSN(tb testing.TB) string {
	tb.Helper()
	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}
	pgOnce.Do(func() {
		pgDSN, pgErr = startPostgres(context.Background())
	})
	if pgErr != nil {
		tb.Fatalf("start postgres container: %v", pgErr)
	}
	return pgDSN
}

func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "skydb",
			"POSTGRES_PASSWORD": "skydb",
			"POSTGRES_DB":       "skydb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start postgres container: %w", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve postgres host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve postgres port: %w", err)
	}
	return fmt.Sprintf("postgres://skydb:skydb@%s:%s/skydb?sslmode=disable", host, port.Port()), nil
}

func openStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, getDSN(t))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "migrate must be idempotent")
	return s
}

func sign(t *testing.T, id *keys.Identity, key string, data string, rev uint64) registry.SignedEntry {
	t.Helper()
	se, err := registry.Sign(registry.Entry{DataKey: []byte(key), Data: []byte(data), Revision: rev}, id)
	require.NoError(t, err)
	return se
}

func TestIntegration_LookupUpdate(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	id, err := keys.DeriveIdentityWithParams(t.Name(), "pw", keys.Params{Time: 1, MemoryKiB: 64, Threads: 1})
	require.NoError(t, err)

	_, err = s.Lookup(ctx, id.PublicKey, []byte("k"))
	assert.ErrorIs(t, err, registry.ErrNotFound)

	first := sign(t, id, "k", "v1", 1)
	require.NoError(t, s.Update(ctx, id.PublicKey, first))
	got, err := s.Lookup(ctx, id.PublicKey, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.True(t, registry.Verify(got, id.PublicKey))

	assert.ErrorIs(t, s.Update(ctx, id.PublicKey, sign(t, id, "k", "stale", 1)), registry.ErrConflict)
	assert.ErrorIs(t, s.Update(ctx, id.PublicKey, sign(t, id, "k", "older", 0)), registry.ErrConflict)

	high := sign(t, id, "k", "high", math.MaxUint64)
	require.NoError(t, s.Update(ctx, id.PublicKey, high))
	got, err = s.Lookup(ctx, id.PublicKey, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), got.Revision)
}

func TestIntegration_RejectsForeignSignature(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	p := keys.Params{Time: 1, MemoryKiB: 64, Threads: 1}
	alice, err := keys.DeriveIdentityWithParams(t.Name()+"-alice", "pw", p)
	require.NoError(t, err)
	bob, err := keys.DeriveIdentityWithParams(t.Name()+"-bob", "pw", p)
	require.NoError(t, err)

	err = s.Update(ctx, bob.PublicKey, sign(t, alice, "k", "v", 1))
	assert.True(t, registry.IsKind(err, registry.KindIntegrity), "got %v", err)
	_, err = s.Lookup(ctx, bob.PublicKey, []byte("k"))
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestIntegration_ConcurrentWritersOneWins(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	id, err := keys.DeriveIdentityWithParams(t.Name(), "pw", keys.Params{Time: 1, MemoryKiB: 64, Threads: 1})
	require.NoError(t, err)

	const writers = 8
	entries := make([]registry.SignedEntry, writers)
	for i := range entries {
		entries[i] = sign(t, id, "race", fmt.Sprintf("w%d", i), 1)
	}
	errs := make([]error, writers)
	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Update(ctx, id.PublicKey, entries[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.True(t, errors.Is(err, registry.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)
}
