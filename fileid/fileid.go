// Package fileid builds file identifiers and their canonical registry DataKey.
//
// The DataKey is compact JSON with a fixed field order:
//
//	{"version":1,"applicationid":"app","filetype":1,"filename":"name"}
//
// HTML escaping is disabled and no whitespace is emitted. JSON string
// escaping is injective over valid UTF-8, so distinct FileIDs never share a
// DataKey. Invalid UTF-8 is rejected rather than replaced.
package fileid

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// CurrentVersion is the FileID version produced by New.
const CurrentVersion = 1

// ErrInvalid is returned (wrapped) for malformed FileIDs and DataKeys.
var ErrInvalid = errors.New("fileid: invalid file id")

// FileType is the integer code of a file's storage class.
type FileType int

const (
	// PublicUnencrypted files are stored in the clear.
	PublicUnencrypted FileType = 1
)

func (t FileType) String() string {
	switch t {
	case PublicUnencrypted:
		return "PublicUnencrypted"
	default:
		return fmt.Sprintf("FileType(%d)", int(t))
	}
}

// Known reports whether t is a defined file type.
func (t FileType) Known() bool {
	return t == PublicUnencrypted
}

// FileID names one logical file of one application.
type FileID struct {
	Version       int
	ApplicationID string
	FileType      FileType
	Filename      string
}

// wire fixes the field order of the canonical encoding.
type wire struct {
	Version       int    `json:"version"`
	ApplicationID string `json:"applicationid"`
	FileType      int    `json:"filetype"`
	Filename      string `json:"filename"`
}

// New returns a version 1 FileID.
func New(applicationID string, t FileType, filename string) (FileID, error) {
	return NewWithVersion(CurrentVersion, applicationID, t, filename)
}

// NewWithVersion returns a FileID with an explicit version.
func NewWithVersion(version int, applicationID string, t FileType, filename string) (FileID, error) {
	f := FileID{Version: version, ApplicationID: applicationID, FileType: t, Filename: filename}
	if err := f.Validate(); err != nil {
		return FileID{}, err
	}
	return f, nil
}

// Validate checks that f can be encoded.
func (f FileID) Validate() error {
	switch {
	case f.Version < 1:
		return fmt.Errorf("%w: version must be >= 1, got %d", ErrInvalid, f.Version)
	case f.ApplicationID == "":
		return fmt.Errorf("%w: empty application id", ErrInvalid)
	case !utf8.ValidString(f.ApplicationID):
		return fmt.Errorf("%w: application id is not valid UTF-8", ErrInvalid)
	case !f.FileType.Known():
		return fmt.Errorf("%w: unknown file type %d", ErrInvalid, int(f.FileType))
	case f.Filename == "":
		return fmt.Errorf("%w: empty filename", ErrInvalid)
	case !utf8.ValidString(f.Filename):
		return fmt.Errorf("%w: filename is not valid UTF-8", ErrInvalid)
	}
	return nil
}

// Encode returns the canonical DataKey for f.
func Encode(f FileID) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(wire{
		Version:       f.Version,
		ApplicationID: f.ApplicationID,
		FileType:      int(f.FileType),
		Filename:      f.Filename,
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// DataKey is shorthand for Encode(f).
func (f FileID) DataKey() ([]byte, error) {
	return Encode(f)
}

// String returns the DataKey text, or a placeholder for invalid ids.
func (f FileID) String() string {
	b, err := Encode(f)
	if err != nil {
		return fmt.Sprintf("invalid(%d,%q,%d,%q)", f.Version, f.ApplicationID, int(f.FileType), f.Filename)
	}
	return string(b)
}

// Decode parses a DataKey. The input must already be canonical: re-encoding
// the parsed FileID has to reproduce it byte for byte.
func Decode(b []byte) (FileID, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var w wire
	if err := dec.Decode(&w); err != nil {
		return FileID{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	f := FileID{
		Version:       w.Version,
		ApplicationID: w.ApplicationID,
		FileType:      FileType(w.FileType),
		Filename:      w.Filename,
	}
	canon, err := Encode(f)
	if err != nil {
		return FileID{}, err
	}
	if !bytes.Equal(canon, b) {
		return FileID{}, fmt.Errorf("%w: data key is not canonical", ErrInvalid)
	}
	return f, nil
}
