package skyfile

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/storage"
)

// Store keeps SkyFile envelopes in a CAS.
type Store struct {
	CAS storage.CAS
	// Compress stores envelopes zstd-compressed. Reads accept both forms.
	Compress bool
}

// Put uploads f and returns the locator of its envelope.
func (s Store) Put(ctx context.Context, f *SkyFile) (cid.Cid, error) {
	if s.CAS == nil {
		return cid.Undef, storage.ErrNoBackends
	}
	var opts []EncodeOption
	if s.Compress {
		opts = append(opts, WithCompression())
	}
	b, err := Encode(f, opts...)
	if err != nil {
		return cid.Undef, err
	}
	return s.CAS.Put(ctx, b)
}

// Get downloads and decodes the envelope at id.
func (s Store) Get(ctx context.Context, id cid.Cid) (*SkyFile, error) {
	if s.CAS == nil {
		return nil, storage.ErrNoBackends
	}
	b, err := s.CAS.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cidutil.Matches(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	f, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("skyfile: %s: %w", id, err)
	}
	return f, nil
}
