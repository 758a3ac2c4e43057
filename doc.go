// Package skydb stores small mutable files behind signed registry entries.
//
// A file is addressed by (public key, FileID). Its bytes live in a
// content-addressed Blob Store; the registry holds one signed entry per
// address whose Data is the blob's locator and whose Revision orders
// updates. Identities are derived deterministically from a username and
// password (see package keys), so the same credentials reach the same files
// from any machine.
//
// Reads look up the entry, verify its signature and fetch the blob. Writes
// upload first, then look up the current revision, sign revision+1 and
// submit; a conflicting concurrent writer causes a bounded re-lookup loop.
//
// A lookup that fails for any reason other than "not found" is treated as
// revision 0 on the write path unless WithStrictLookup is set. Against an
// existing key this submits a stale revision that the registry rejects as a
// conflict, which then re-runs the lookup.
package skydb
