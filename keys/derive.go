package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SchemeID names the derivation scheme. It is mixed into every salt.
const SchemeID = "skydb-identity-v1"

// ErrEmptyUsername is returned when deriving an identity without a username.
var ErrEmptyUsername = errors.New("keys: username cannot be empty")

// Params are the Argon2id cost parameters used to harden the password.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams are the parameters used by DeriveIdentity.
//
// Every client that should resolve the same identity must use the same values.
var DefaultParams = Params{Time: 2, MemoryKiB: 19 * 1024, Threads: 1}

func (p Params) validate() error {
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return fmt.Errorf("keys: invalid argon2 params %+v", p)
	}
	return nil
}

// Identity is a deterministically derived Ed25519 keypair.
type Identity struct {
	PublicKey ed25519.PublicKey

	privateKey ed25519.PrivateKey
}

// DeriveIdentity derives the identity for username and password using DefaultParams.
func DeriveIdentity(username, password string) (*Identity, error) {
	return DeriveIdentityWithParams(username, password, DefaultParams)
}

// DeriveIdentityWithParams is DeriveIdentity with explicit Argon2id parameters.
func DeriveIdentityWithParams(username, password string, p Params) (*Identity, error) {
	seed, err := DeriveSeed(username, password, p)
	if err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

// DeriveSeed returns the Ed25519 seed for the given credentials.
func DeriveSeed(username, password string, p Params) ([]byte, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	salt := userSalt(username)
	return argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, ed25519.SeedSize), nil
}

func userSalt(username string) []byte {
	h := sha256.New()
	_, _ = h.Write([]byte(SchemeID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte("user:"))
	_, _ = h.Write([]byte(username))
	return h.Sum(nil)
}

// FromSeed builds an identity from a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Identity{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		privateKey: priv,
	}, nil
}

// ID returns the lowercase hex encoding of the public key.
func (id *Identity) ID() string {
	return hex.EncodeToString(id.PublicKey)
}

// EncodedPublicKey returns the "ed25519:<hex>" wire form of the public key.
func (id *Identity) EncodedPublicKey() string {
	s, _ := EncodePublicKey(id.PublicKey)
	return s
}

// Valid reports whether id holds a private key matching its public key.
// Only identities from DeriveIdentity, DeriveIdentityWithParams or FromSeed
// are valid; a zero Identity is not.
func (id *Identity) Valid() bool {
	if id == nil || len(id.privateKey) != ed25519.PrivateKeySize {
		return false
	}
	return bytes.Equal(id.privateKey.Public().(ed25519.PublicKey), id.PublicKey)
}

// Sign signs msg with the identity's private key. It returns nil when id is
// not Valid.
func (id *Identity) Sign(msg []byte) []byte {
	if !id.Valid() {
		return nil
	}
	return ed25519.Sign(id.privateKey, msg)
}

// Equal reports whether two identities hold the same keypair.
func (id *Identity) Equal(other *Identity) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.privateKey.Equal(other.privateKey)
}

// String never reveals the private key.
func (id *Identity) String() string {
	return "ed25519:" + id.ID()
}
