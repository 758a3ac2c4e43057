// Package pgregistry is a PostgreSQL-backed registry.Transport.
//
// Entries live in a single table keyed by (public_key, data_key). Updates are
// admitted with registry.Admit and applied with a conditional upsert so the
// revision check and the write happen in one statement.
package pgregistry

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"xdao.co/skydb/registry"
)

const schema = `
CREATE TABLE IF NOT EXISTS registry_entries (
	public_key bytea  NOT NULL,
	data_key   bytea  NOT NULL,
	data       bytea  NOT NULL,
	revision   bigint NOT NULL,
	signature  bytea  NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (public_key, data_key)
)`

const lookupSQL = `
SELECT data, revision, signature
FROM registry_entries
WHERE public_key = $1 AND data_key = $2`

const upsertSQL = `
INSERT INTO registry_entries (public_key, data_key, data, revision, signature)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (public_key, data_key) DO UPDATE
SET data = EXCLUDED.data,
    revision = EXCLUDED.revision,
    signature = EXCLUDED.signature,
    updated_at = now()
WHERE registry_entries.revision < EXCLUDED.revision`

// Store implements registry.Transport on a pgx pool.
type Store struct {
	Pool *pgxpool.Pool
}

var _ registry.Transport = (*Store)(nil)

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*Store, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgregistry: unable to parse connection string: %w", err)
	}
	config.MaxConns = 20
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgregistry: unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgregistry: failed to ping database: %w", err)
	}
	return &Store{Pool: pool}, nil
}

// Migrate creates the registry table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pgregistry: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s != nil && s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Lookup(ctx context.Context, pub ed25519.PublicKey, dataKey []byte) (registry.SignedEntry, error) {
	const op = "pgregistry.Lookup"
	var (
		data []byte
		rev  int64
		sig  []byte
	)
	err := s.Pool.QueryRow(ctx, lookupSQL, []byte(pub), dataKey).Scan(&data, &rev, &sig)
	if errors.Is(err, pgx.ErrNoRows) {
		return registry.SignedEntry{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.SignedEntry{}, registry.E(registry.KindTransport, op, "query", err)
	}
	se := registry.SignedEntry{Entry: registry.Entry{
		DataKey:  append([]byte(nil), dataKey...),
		Data:     data,
		Revision: decodeRevision(rev),
	}}
	if len(sig) != len(se.Signature) {
		return registry.SignedEntry{}, registry.E(registry.KindIntegrity, op, fmt.Sprintf("stored signature is %d bytes", len(sig)), nil)
	}
	copy(se.Signature[:], sig)
	return se, nil
}

func (s *Store) Update(ctx context.Context, pub ed25519.PublicKey, se registry.SignedEntry) error {
	if err := registry.Admit(pub, se); err != nil {
		return err
	}
	tag, err := s.Pool.Exec(ctx, upsertSQL,
		[]byte(pub), se.DataKey, nonNil(se.Data), encodeRevision(se.Revision), se.Signature[:])
	if err != nil {
		return registry.E(registry.KindTransport, "pgregistry.Update", "upsert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: revision %d is not newer than the stored entry", registry.ErrConflict, se.Revision)
	}
	return nil
}

// encodeRevision maps uint64 onto int64 preserving order, so bigint
// comparisons in SQL agree with revision order.
func encodeRevision(rev uint64) int64 {
	return int64(rev ^ (1 << 63))
}

func decodeRevision(v int64) uint64 {
	return uint64(v) ^ (1 << 63)
}

// nonNil keeps empty data out of NULL, which the schema forbids.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
