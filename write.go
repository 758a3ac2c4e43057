package skydb

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/ipfs/go-cid"

	"xdao.co/skydb/fileid"
	"xdao.co/skydb/keys"
	"xdao.co/skydb/registry"
	"xdao.co/skydb/skyfile"
)

// Write states, logged under the "state" key.
const (
	stateLookingUp    = "looking_up"
	stateFound        = "found"
	stateNotFound     = "not_found"
	stateLookupFailed = "lookup_failed"
	stateSigning      = "signing"
	stateSubmitting   = "submitting"
	stateDone         = "done"
	stateConflict     = "conflict"
	stateFailed       = "failed"
)

// SetFile stores data under (id, fid) using fid.Filename as the file name.
func (c *Client) SetFile(ctx context.Context, id *keys.Identity, fid fileid.FileID, data []byte) (cid.Cid, error) {
	return c.SetSkyFile(ctx, id, fid, skyfile.New(fid.Filename, data))
}

// SetSkyFile uploads f and points the registry entry for (id, fid) at it.
//
// The upload happens exactly once. The lookup/sign/update cycle runs once
// plus up to MaxRetries more times while the registry reports a conflict.
// Once retries are exhausted the error is a *ConflictError.
func (c *Client) SetSkyFile(ctx context.Context, id *keys.Identity, fid fileid.FileID, f *skyfile.SkyFile) (cid.Cid, error) {
	const op = "skydb.SetFile"
	if !id.Valid() {
		return cid.Undef, registry.E(registry.KindEncoding, op, "invalid identity", nil)
	}
	dataKey, err := dataKeyFor(op, fid)
	if err != nil {
		return cid.Undef, err
	}
	log := c.log().With("op", uuid.NewString(), "user", id.ID(), "file", fid.String())

	if c.serialize {
		unlock, err := c.locks.lock(ctx, registry.EntryKey(id.PublicKey, dataKey))
		if err != nil {
			return cid.Undef, registry.E(registry.KindTransport, op, "waiting for an in-flight write", err)
		}
		defer unlock()
	}

	loc, err := c.blobs.Put(ctx, f)
	if err != nil {
		log.WarnContext(ctx, "upload failed", "state", stateFailed, "error", err)
		return cid.Undef, blobErr(op, "upload", err)
	}
	data := loc.Bytes()
	if len(data) > registry.MaxDataSize {
		return cid.Undef, registry.E(registry.KindEncoding, op, fmt.Sprintf("locator is %d bytes", len(data)), nil)
	}
	log = log.With("locator", loc.String())

	for attempt := 1; ; attempt++ {
		alog := log.With("attempt", attempt)
		rev, err := c.nextRevision(ctx, alog, id.PublicKey, dataKey)
		if err != nil {
			return cid.Undef, err
		}

		alog.DebugContext(ctx, "signing entry", "state", stateSigning, "revision", rev)
		se, err := registry.Sign(registry.Entry{DataKey: dataKey, Data: data, Revision: rev}, id)
		if err != nil {
			return cid.Undef, err
		}

		alog.DebugContext(ctx, "submitting entry", "state", stateSubmitting, "revision", rev)
		err = c.registry.Update(ctx, id.PublicKey, se)
		if err == nil {
			alog.InfoContext(ctx, "entry updated", "state", stateDone, "revision", rev)
			return loc, nil
		}
		if !errors.Is(err, registry.ErrConflict) {
			alog.WarnContext(ctx, "update failed", "state", stateFailed, "revision", rev, "error", err)
			return cid.Undef, transportErr(op, "update", err)
		}

		alog.InfoContext(ctx, "update lost to a newer revision", "state", stateConflict, "revision", rev)
		if attempt > c.maxRetries {
			return cid.Undef, newConflictError(op, attempt, rev, err)
		}
	}
}

// nextRevision returns the revision to submit: the verified current revision
// plus one, or 0 when there is no entry or (unless strict) the lookup failed.
func (c *Client) nextRevision(ctx context.Context, log *slog.Logger, pub ed25519.PublicKey, dataKey []byte) (uint64, error) {
	const op = "skydb.SetFile"
	log.DebugContext(ctx, "looking up current entry", "state", stateLookingUp)

	se, err := c.registry.Lookup(ctx, pub, dataKey)
	switch {
	case err == nil:
		if err := verify(op, se, pub, dataKey); err != nil {
			log.ErrorContext(ctx, "current entry failed verification", "state", stateFailed, "error", err)
			return 0, err
		}
		next, err := registry.NextRevision(se.Revision)
		if err != nil {
			log.ErrorContext(ctx, "revision space exhausted", "state", stateFailed, "revision", se.Revision)
			return 0, err
		}
		log.DebugContext(ctx, "current entry found", "state", stateFound, "revision", se.Revision)
		return next, nil

	case errors.Is(err, registry.ErrNotFound):
		log.DebugContext(ctx, "no current entry", "state", stateNotFound)
		return 0, nil

	case registry.IsKind(err, registry.KindIntegrity):
		log.ErrorContext(ctx, "lookup reported an integrity failure", "state", stateFailed, "error", err)
		return 0, registry.E(registry.KindIntegrity, op, "lookup", err)

	case c.strictLookup:
		log.WarnContext(ctx, "lookup failed", "state", stateLookupFailed, "error", err)
		return 0, registry.E(registry.KindTransport, op, "lookup failed", err)

	default:
		log.WarnContext(ctx, "lookup failed, assuming revision 0", "state", stateLookupFailed, "error", err)
		return 0, nil
	}
}
