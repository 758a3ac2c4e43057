// Package keys derives SkyDB user identities from credentials.
//
// An identity is an Ed25519 keypair whose seed is derived from a username and
// password with a fixed, versioned scheme (skydb-identity-v1):
//
//	salt = SHA-256("skydb-identity-v1" || 0x00 || "user:" || username)
//	seed = Argon2id(password, salt, time, memory, threads, 32)
//	key  = Ed25519(seed)
//
// Derivation is pure: no randomness, no I/O, no global state. The same
// credentials and Params always yield the same keypair. An empty username is
// rejected; an empty password is valid hashing input.
//
// Changing any constant in the scheme changes every derived key and therefore
// every registry entry a user owns.
package keys
