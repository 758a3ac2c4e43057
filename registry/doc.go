// Package registry defines signed registry entries, their canonical signed
// payload, and the Transport contract used to look them up and submit them.
//
// A registry maps (public key, data key) to a small opaque value plus a
// revision counter. Entries are authenticated by Ed25519 signature rather
// than by access control: the registry accepts an update only if it carries a
// valid signature from the key owner and a revision strictly greater than the
// stored one.
//
// Signed payload (fixed, shared by signer and verifier):
//
//	u64le(len(dataKey)) || dataKey || u64le(len(data)) || data || u64le(revision)
//
// The signature is Ed25519 over BLAKE2b-256(payload).
package registry
