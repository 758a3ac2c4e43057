package skydb

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"

	"github.com/ipfs/go-cid"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/fileid"
	"xdao.co/skydb/registry"
	"xdao.co/skydb/skyfile"
)

// GetEntry looks up and verifies the registry entry for (pub, fid).
//
// A missing entry is a KindNotFound error matching registry.ErrNotFound.
func (c *Client) GetEntry(ctx context.Context, pub ed25519.PublicKey, fid fileid.FileID) (registry.SignedEntry, error) {
	const op = "skydb.GetEntry"
	dataKey, err := dataKeyFor(op, fid)
	if err != nil {
		return registry.SignedEntry{}, err
	}
	se, err := c.registry.Lookup(ctx, pub, dataKey)
	if errors.Is(err, registry.ErrNotFound) {
		return registry.SignedEntry{}, registry.E(registry.KindNotFound, op, "no entry for "+fid.String(), err)
	}
	if err != nil {
		return registry.SignedEntry{}, transportErr(op, "lookup failed", err)
	}
	if err := verify(op, se, pub, dataKey); err != nil {
		return registry.SignedEntry{}, err
	}
	return se, nil
}

// GetLocator returns the verified content locator stored for (pub, fid).
func (c *Client) GetLocator(ctx context.Context, pub ed25519.PublicKey, fid fileid.FileID) (cid.Cid, error) {
	se, err := c.GetEntry(ctx, pub, fid)
	if err != nil {
		return cid.Undef, err
	}
	return locatorOf("skydb.GetLocator", se)
}

// GetSkyFile returns the file stored for (pub, fid). The Blob Store is only
// consulted once the entry's signature has been verified.
func (c *Client) GetSkyFile(ctx context.Context, pub ed25519.PublicKey, fid fileid.FileID) (*skyfile.SkyFile, error) {
	const op = "skydb.GetFile"
	loc, err := c.GetLocator(ctx, pub, fid)
	if err != nil {
		return nil, err
	}
	f, err := c.blobs.Get(ctx, loc)
	if err != nil {
		return nil, blobErr(op, "download "+loc.String(), err)
	}
	return f, nil
}

// GetFile returns the bytes stored for (pub, fid).
func (c *Client) GetFile(ctx context.Context, pub ed25519.PublicKey, fid fileid.FileID) ([]byte, error) {
	f, err := c.GetSkyFile(ctx, pub, fid)
	if err != nil {
		return nil, err
	}
	return f.Data, nil
}

func verify(op string, se registry.SignedEntry, pub ed25519.PublicKey, dataKey []byte) error {
	if !bytes.Equal(se.DataKey, dataKey) {
		return registry.E(registry.KindIntegrity, op, "entry is for a different data key", nil)
	}
	if err := registry.VerifyEntry(se, pub); err != nil {
		return registry.E(registry.KindIntegrity, op, "entry rejected", err)
	}
	return nil
}

func locatorOf(op string, se registry.SignedEntry) (cid.Cid, error) {
	loc, err := cidutil.FromBytes(se.Data)
	if err != nil {
		return cid.Undef, registry.E(registry.KindEncoding, op, "entry data is not a content locator", err)
	}
	return loc, nil
}
