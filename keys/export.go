package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

const publicKeyPrefix = "ed25519:"

// EncodePublicKey encodes an Ed25519 public key into the "ed25519:<hex>" form
// used on the registry wire.
func EncodePublicKey(pub ed25519.PublicKey) (string, error) {
	if l := len(pub); l != ed25519.PublicKeySize {
		return "", fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, l)
	}
	return publicKeyPrefix + hex.EncodeToString(pub), nil
}

// ParsePublicKey decodes "ed25519:<hex>" or bare hex into a public key.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	s = strings.TrimSpace(s)
	if alg, rest, ok := strings.Cut(s, ":"); ok {
		if alg != "ed25519" {
			return nil, fmt.Errorf("unsupported public key algorithm %q", alg)
		}
		s = rest
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(b))
	}
	return ed25519.PublicKey(b), nil
}
