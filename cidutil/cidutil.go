// Package cidutil derives and parses the content locators used by SkyDB.
//
// Every blob is addressed by a CIDv1 using the "raw" multicodec and a
// sha2-256 multihash. Registry entries carry the binary form of the CID.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// LocatorSize is the length of a binary CIDv1 raw sha2-256 locator.
const LocatorSize = 36

// Sum returns the CIDv1 (raw + sha2-256) derived from data.
func Sum(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String returns the string form of Sum(data), or "" if hashing fails.
func String(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}

// Matches reports whether data hashes to id.
func Matches(id cid.Cid, data []byte) bool {
	got, err := Sum(data)
	if err != nil {
		return false
	}
	return got.Equals(id)
}

// FromBytes decodes a binary locator as stored in a registry entry.
//
// Only CIDv1 raw sha2-256 locators are accepted.
func FromBytes(b []byte) (cid.Cid, error) {
	n, id, err := cid.CidFromBytes(b)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: decode locator: %w", err)
	}
	if n != len(b) {
		return cid.Undef, fmt.Errorf("cidutil: %d trailing bytes after locator", len(b)-n)
	}
	if err := check(id); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// Parse decodes the string form of a locator.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: parse locator: %w", err)
	}
	if err := check(id); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

func check(id cid.Cid) error {
	if !id.Defined() {
		return fmt.Errorf("cidutil: undefined locator")
	}
	p := id.Prefix()
	if p.Version != 1 || p.Codec != cid.Raw || p.MhType != multihash.SHA2_256 {
		return fmt.Errorf("cidutil: unsupported locator %s", id)
	}
	return nil
}
