package grpcregistry

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/skydb/keys"
	"xdao.co/skydb/registry"
)

// Wire field names.
//
// Lookup request:  {userid, fileid}
// Lookup response: {Tweak, Data, Revision, Signature}
// Update request:  {publickey, fileid, revision, data, signature}
//
// Public keys use the "ed25519:<hex>" form, fileid is the DataKey text,
// byte fields are lowercase hex and revisions are decimal strings.
const (
	fieldUserID    = "userid"
	fieldFileID    = "fileid"
	fieldPublicKey = "publickey"
	fieldRevision  = "revision"
	fieldData      = "data"
	fieldSignature = "signature"

	respTweak     = "Tweak"
	respData      = "Data"
	respRevision  = "Revision"
	respSignature = "Signature"
)

func encodingErr(op, msg string, cause error) error {
	return registry.E(registry.KindEncoding, op, msg, cause)
}

func newStruct(op string, m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, encodingErr(op, "build message", err)
	}
	return s, nil
}

func stringField(s *structpb.Struct, name string) (string, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return "", fmt.Errorf("missing field %q", name)
	}
	sv, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", name)
	}
	return sv.StringValue, nil
}

func hexField(s *structpb.Struct, name string) ([]byte, error) {
	str, err := stringField(s, name)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return b, nil
}

func revisionField(s *structpb.Struct, name string) (uint64, error) {
	str, err := stringField(s, name)
	if err != nil {
		return 0, err
	}
	rev, err := strconv.ParseUint(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", name, err)
	}
	return rev, nil
}

func signatureField(s *structpb.Struct, name string) ([ed25519.SignatureSize]byte, error) {
	var sig [ed25519.SignatureSize]byte
	b, err := hexField(s, name)
	if err != nil {
		return sig, err
	}
	if len(b) != len(sig) {
		return sig, fmt.Errorf("field %q: signature must be %d bytes, got %d", name, len(sig), len(b))
	}
	copy(sig[:], b)
	return sig, nil
}

func publicKeyField(s *structpb.Struct, name string) (ed25519.PublicKey, error) {
	str, err := stringField(s, name)
	if err != nil {
		return nil, err
	}
	pub, err := keys.ParsePublicKey(str)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	return pub, nil
}

func encodeLookupRequest(pub ed25519.PublicKey, dataKey []byte) (*structpb.Struct, error) {
	const op = "grpcregistry.encodeLookupRequest"
	user, err := keys.EncodePublicKey(pub)
	if err != nil {
		return nil, encodingErr(op, "public key", err)
	}
	return newStruct(op, map[string]any{
		fieldUserID: user,
		fieldFileID: string(dataKey),
	})
}

func decodeLookupRequest(s *structpb.Struct) (ed25519.PublicKey, []byte, error) {
	const op = "grpcregistry.decodeLookupRequest"
	pub, err := publicKeyField(s, fieldUserID)
	if err != nil {
		return nil, nil, encodingErr(op, "lookup request", err)
	}
	fid, err := stringField(s, fieldFileID)
	if err != nil {
		return nil, nil, encodingErr(op, "lookup request", err)
	}
	return pub, []byte(fid), nil
}

func encodeLookupResponse(se registry.SignedEntry) (*structpb.Struct, error) {
	tweak := registry.Tweak(se.DataKey)
	return newStruct("grpcregistry.encodeLookupResponse", map[string]any{
		respTweak:     hex.EncodeToString(tweak[:]),
		respData:      hex.EncodeToString(se.Data),
		respRevision:  strconv.FormatUint(se.Revision, 10),
		respSignature: hex.EncodeToString(se.Signature[:]),
	})
}

// decodeLookupResponse rebuilds the entry for dataKey. A response whose
// tweak names a different key is an Integrity error.
func decodeLookupResponse(s *structpb.Struct, dataKey []byte) (registry.SignedEntry, error) {
	const op = "grpcregistry.decodeLookupResponse"
	tweak, err := hexField(s, respTweak)
	if err != nil {
		return registry.SignedEntry{}, encodingErr(op, "lookup response", err)
	}
	want := registry.Tweak(dataKey)
	if string(tweak) != string(want[:]) {
		return registry.SignedEntry{}, registry.E(registry.KindIntegrity, op, "response is for a different data key", nil)
	}
	data, err := hexField(s, respData)
	if err != nil {
		return registry.SignedEntry{}, encodingErr(op, "lookup response", err)
	}
	rev, err := revisionField(s, respRevision)
	if err != nil {
		return registry.SignedEntry{}, encodingErr(op, "lookup response", err)
	}
	sig, err := signatureField(s, respSignature)
	if err != nil {
		return registry.SignedEntry{}, encodingErr(op, "lookup response", err)
	}
	return registry.SignedEntry{
		Entry:     registry.Entry{DataKey: append([]byte(nil), dataKey...), Data: data, Revision: rev},
		Signature: sig,
	}, nil
}

func encodeUpdateRequest(pub ed25519.PublicKey, se registry.SignedEntry) (*structpb.Struct, error) {
	const op = "grpcregistry.encodeUpdateRequest"
	pk, err := keys.EncodePublicKey(pub)
	if err != nil {
		return nil, encodingErr(op, "public key", err)
	}
	return newStruct(op, map[string]any{
		fieldPublicKey: pk,
		fieldFileID:    string(se.DataKey),
		fieldRevision:  strconv.FormatUint(se.Revision, 10),
		fieldData:      hex.EncodeToString(se.Data),
		fieldSignature: hex.EncodeToString(se.Signature[:]),
	})
}

func decodeUpdateRequest(s *structpb.Struct) (ed25519.PublicKey, registry.SignedEntry, error) {
	const op = "grpcregistry.decodeUpdateRequest"
	fail := func(err error) (ed25519.PublicKey, registry.SignedEntry, error) {
		return nil, registry.SignedEntry{}, encodingErr(op, "update request", err)
	}
	pub, err := publicKeyField(s, fieldPublicKey)
	if err != nil {
		return fail(err)
	}
	fid, err := stringField(s, fieldFileID)
	if err != nil {
		return fail(err)
	}
	rev, err := revisionField(s, fieldRevision)
	if err != nil {
		return fail(err)
	}
	data, err := hexField(s, fieldData)
	if err != nil {
		return fail(err)
	}
	sig, err := signatureField(s, fieldSignature)
	if err != nil {
		return fail(err)
	}
	return pub, registry.SignedEntry{
		Entry:     registry.Entry{DataKey: []byte(fid), Data: data, Revision: rev},
		Signature: sig,
	}, nil
}
