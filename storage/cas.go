// Package storage defines the content-addressed blob store that backs SkyDB
// file contents, plus composite stores built from several backends.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// CAS is a minimal content-addressable storage interface.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be CIDv1 raw sha2-256 derived from the bytes written (see cidutil.Sum).
// - Get MUST return ErrNotFound when the CID is absent.
// - Cancellation and deadlines are carried by ctx; backends that cannot honor
//   them mid-operation check ctx before starting.
type CAS interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) bool
}
