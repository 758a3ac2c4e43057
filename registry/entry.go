package registry

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"golang.org/x/crypto/blake2b"

	"xdao.co/skydb/keys"
)

// MaxDataSize is the largest Data value a registry entry may hold.
const MaxDataSize = 113

// MaxDataKeySize bounds the DataKey so a single entry stays small on the wire.
const MaxDataKeySize = 1024

// Entry is an unsigned registry entry.
type Entry struct {
	DataKey  []byte
	Data     []byte
	Revision uint64
}

// SignedEntry is an Entry with the owner's signature over its payload.
type SignedEntry struct {
	Entry
	Signature [ed25519.SignatureSize]byte
}

// Validate checks the size limits of e.
func (e Entry) Validate() error {
	const op = "registry.Entry.Validate"
	switch {
	case len(e.DataKey) == 0:
		return E(KindEncoding, op, "empty data key", nil)
	case len(e.DataKey) > MaxDataKeySize:
		return E(KindEncoding, op, fmt.Sprintf("data key is %d bytes, limit %d", len(e.DataKey), MaxDataKeySize), nil)
	case len(e.Data) > MaxDataSize:
		return E(KindEncoding, op, fmt.Sprintf("data is %d bytes, limit %d", len(e.Data), MaxDataSize), nil)
	}
	return nil
}

// MessageBytes returns the canonical signed payload of e.
func (e Entry) MessageBytes() []byte {
	out := make([]byte, 0, 24+len(e.DataKey)+len(e.Data))
	out = binary.LittleEndian.AppendUint64(out, uint64(len(e.DataKey)))
	out = append(out, e.DataKey...)
	out = binary.LittleEndian.AppendUint64(out, uint64(len(e.Data)))
	out = append(out, e.Data...)
	out = binary.LittleEndian.AppendUint64(out, e.Revision)
	return out
}

// Hash returns BLAKE2b-256 of the signed payload.
func (e Entry) Hash() [32]byte {
	return blake2b.Sum256(e.MessageBytes())
}

// Clone returns a deep copy of se.
func (se SignedEntry) Clone() SignedEntry {
	out := se
	out.DataKey = bytes.Clone(se.DataKey)
	out.Data = bytes.Clone(se.Data)
	return out
}

func (se SignedEntry) String() string {
	return fmt.Sprintf("entry(key=%q rev=%d data=%s)", se.DataKey, se.Revision, hex.EncodeToString(se.Data))
}

// Sign signs e with id's private key. An identity that is not Valid,
// such as a zero keys.Identity, is an Encoding error.
func Sign(e Entry, id *keys.Identity) (SignedEntry, error) {
	if !id.Valid() {
		return SignedEntry{}, E(KindEncoding, "registry.Sign", "identity has no private key", nil)
	}
	if err := e.Validate(); err != nil {
		return SignedEntry{}, err
	}
	digest := e.Hash()
	se := SignedEntry{Entry: Entry{
		DataKey:  bytes.Clone(e.DataKey),
		Data:     bytes.Clone(e.Data),
		Revision: e.Revision,
	}}
	copy(se.Signature[:], id.Sign(digest[:]))
	return se, nil
}

// Verify reports whether se carries a valid signature by pub.
func Verify(se SignedEntry, pub ed25519.PublicKey) bool {
	return VerifyEntry(se, pub) == nil
}

// VerifyEntry is Verify with a KindIntegrity error describing the failure.
func VerifyEntry(se SignedEntry, pub ed25519.PublicKey) error {
	const op = "registry.VerifyEntry"
	if len(pub) != ed25519.PublicKeySize {
		return E(KindIntegrity, op, fmt.Sprintf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub)), nil)
	}
	if err := se.Validate(); err != nil {
		return E(KindIntegrity, op, "malformed entry", err)
	}
	digest := se.Hash()
	if !ed25519.Verify(pub, digest[:], se.Signature[:]) {
		return E(KindIntegrity, op, "signature invalid", nil)
	}
	return nil
}

// NextRevision returns the revision that supersedes prev.
func NextRevision(prev uint64) (uint64, error) {
	if prev == math.MaxUint64 {
		return 0, E(KindConflict, "registry.NextRevision", "revision space exhausted", nil)
	}
	return prev + 1, nil
}

// EntryKey is a stable map key for a (public key, data key) pair.
func EntryKey(pub ed25519.PublicKey, dataKey []byte) string {
	return hex.EncodeToString(pub) + "/" + hex.EncodeToString(dataKey)
}

// Tweak is the BLAKE2b-256 of a data key. Registry wire formats carry it so a
// client can tell which key a response was produced for.
func Tweak(dataKey []byte) [32]byte {
	return blake2b.Sum256(dataKey)
}
