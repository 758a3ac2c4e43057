// Package skyfile defines the unit of upload stored behind a registry entry
// and the deterministic envelope it is stored in.
//
// An envelope is a TAR stream holding metadata.json followed by content,
// with normalized headers so equal files always produce equal bytes (and
// therefore equal CIDs). The stream may be wrapped in a zstd frame.
package skyfile

import (
	"bytes"
	"errors"
	"mime"
	"path/filepath"
	"unicode/utf8"
)

// DefaultContentType is used when the filename extension is unknown.
const DefaultContentType = "application/octet-stream"

// ErrInvalid is wrapped by every envelope validation failure.
var ErrInvalid = errors.New("skyfile: invalid envelope")

// SkyFile is a named blob.
type SkyFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// New returns a SkyFile whose content type is inferred from filename.
func New(filename string, data []byte) *SkyFile {
	return &SkyFile{
		Filename:    filename,
		ContentType: ContentTypeFor(filename),
		Data:        data,
	}
}

// ContentTypeFor maps a filename extension to a MIME type.
func ContentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return DefaultContentType
}

// Equal reports whether f and o carry the same name, type and bytes.
func (f *SkyFile) Equal(o *SkyFile) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.Filename == o.Filename && f.ContentType == o.ContentType && bytes.Equal(f.Data, o.Data)
}

func (f *SkyFile) validate() error {
	if f == nil {
		return errors.Join(ErrInvalid, errors.New("nil file"))
	}
	if !utf8.ValidString(f.Filename) || !utf8.ValidString(f.ContentType) {
		return errors.Join(ErrInvalid, errors.New("filename and content type must be valid UTF-8"))
	}
	return nil
}
