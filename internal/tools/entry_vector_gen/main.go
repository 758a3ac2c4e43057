// Command entry_vector_gen prints interop vectors for identity derivation,
// DataKey encoding and registry entry signing.
package main

import (
	"encoding/hex"
	"encoding/json"
	"os"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/fileid"
	"xdao.co/skydb/keys"
	"xdao.co/skydb/registry"
)

type vector struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	PublicKey string `json:"public_key"`
	DataKey   string `json:"data_key"`
	Locator   string `json:"locator"`
	Revision  uint64 `json:"revision"`
	Payload   string `json:"payload_hex"`
	Digest    string `json:"digest_hex"`
	Signature string `json:"signature_hex"`
}

type input struct {
	username, password string
	app, filename      string
	content            string
	revision           uint64
}

var inputs = []input{
	{"alice", "correct horse battery staple", "skydb-vectors", "hello.txt", "hello", 0},
	{"alice", "correct horse battery staple", "skydb-vectors", "hello.txt", "hello again", 12},
	{"bob", "", "skydb-vectors", "empty-password.json", "{}", 1},
	{"carol", "pässwörd", "app<&>", "ünïcode name.md", "# title", 1 << 63},
}

func main() {
	out := make([]vector, 0, len(inputs))
	for _, in := range inputs {
		id, err := keys.DeriveIdentity(in.username, in.password)
		if err != nil {
			panic(err)
		}
		fid, err := fileid.New(in.app, fileid.PublicUnencrypted, in.filename)
		if err != nil {
			panic(err)
		}
		dk, err := fid.DataKey()
		if err != nil {
			panic(err)
		}
		loc, err := cidutil.Sum([]byte(in.content))
		if err != nil {
			panic(err)
		}
		se, err := registry.Sign(registry.Entry{DataKey: dk, Data: loc.Bytes(), Revision: in.revision}, id)
		if err != nil {
			panic(err)
		}
		digest := se.Hash()
		out = append(out, vector{
			Username:  in.username,
			Password:  in.password,
			PublicKey: id.EncodedPublicKey(),
			DataKey:   string(dk),
			Locator:   loc.String(),
			Revision:  in.revision,
			Payload:   hex.EncodeToString(se.MessageBytes()),
			Digest:    hex.EncodeToString(digest[:]),
			Signature: hex.EncodeToString(se.Signature[:]),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		panic(err)
	}
}
