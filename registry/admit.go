package registry

import (
	"crypto/ed25519"
	"fmt"

	circled "github.com/cloudflare/circl/sign/ed25519"
)

// Admit is the check a registry store applies to an update before
// persisting it. The signature is verified with circl's Ed25519, a separate
// implementation from the one clients sign with.
func Admit(pub ed25519.PublicKey, se SignedEntry) error {
	const op = "registry.Admit"
	if len(pub) != circled.PublicKeySize {
		return E(KindEncoding, op, fmt.Sprintf("public key must be %d bytes, got %d", circled.PublicKeySize, len(pub)), nil)
	}
	if err := se.Validate(); err != nil {
		return err
	}
	digest := se.Hash()
	if !circled.Verify(circled.PublicKey(pub), digest[:], se.Signature[:]) {
		return E(KindIntegrity, op, "signature invalid", nil)
	}
	return nil
}
