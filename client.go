package skydb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ipfs/go-cid"

	"xdao.co/skydb/fileid"
	"xdao.co/skydb/registry"
	"xdao.co/skydb/skyfile"
	"xdao.co/skydb/storage"
)

// BlobStore uploads and downloads files by content locator.
type BlobStore interface {
	Put(ctx context.Context, f *skyfile.SkyFile) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) (*skyfile.SkyFile, error)
}

var _ BlobStore = skyfile.Store{}

// Client reads and writes files through a registry Transport and a BlobStore.
// It is safe for concurrent use.
type Client struct {
	registry registry.Transport
	blobs    BlobStore

	logger       *slog.Logger
	maxRetries   int
	serialize    bool
	strictLookup bool

	locks *keyLocks
}

// New returns a Client over transport and blobs.
func New(transport registry.Transport, blobs BlobStore, opts ...Option) *Client {
	c := &Client{
		registry:   transport,
		blobs:      blobs,
		logger:     slog.New(slog.DiscardHandler),
		maxRetries: DefaultMaxRetries,
		serialize:  true,
		locks:      newKeyLocks(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// ConflictError is returned by SetFile when every update attempt lost to a
// concurrent writer. It matches registry.ErrConflict and KindConflict.
type ConflictError struct {
	Attempts int
	// LastRevision is the revision of the final rejected submission.
	LastRevision uint64
	err          error
}

func newConflictError(op string, attempts int, rev uint64, cause error) *ConflictError {
	return &ConflictError{
		Attempts:     attempts,
		LastRevision: rev,
		err:          registry.E(registry.KindConflict, op, fmt.Sprintf("gave up after %d update attempts", attempts), cause),
	}
}

func (e *ConflictError) Error() string { return e.err.Error() }

func (e *ConflictError) Unwrap() error { return e.err }

func dataKeyFor(op string, fid fileid.FileID) ([]byte, error) {
	dk, err := fid.DataKey()
	if err != nil {
		return nil, registry.E(registry.KindEncoding, op, "invalid file id", err)
	}
	return dk, nil
}

// transportErr keeps Integrity failures reported by a transport and files
// everything else, malformed responses included, under KindTransport.
func transportErr(op, msg string, err error) error {
	if registry.IsKind(err, registry.KindIntegrity) {
		return registry.E(registry.KindIntegrity, op, msg, err)
	}
	return registry.E(registry.KindTransport, op, msg, err)
}

func blobErr(op, msg string, err error) error {
	switch {
	case errors.Is(err, storage.ErrCIDMismatch):
		return registry.E(registry.KindIntegrity, op, msg, err)
	case errors.Is(err, skyfile.ErrInvalid):
		return registry.E(registry.KindEncoding, op, msg, err)
	}
	return registry.E(registry.KindTransport, op, msg, err)
}
