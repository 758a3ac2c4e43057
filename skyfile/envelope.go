package skyfile

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
)

// FormatVersion is the current metadata.json schema version.
const FormatVersion = 1

const (
	metadataEntry = "metadata.json"
	contentEntry  = "content"

	// maxDecodedSize bounds what Decode will inflate from a compressed envelope.
	maxDecodedSize = 1 << 30
)

var (
	epoch0    = time.Unix(0, 0).UTC()
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

type metadata struct {
	Version     int    `json:"version"`
	Filename    string `json:"filename"`
	ContentType string `json:"contenttype"`
	Length      int64  `json:"length"`
}

type encodeConfig struct {
	compress bool
	level    zstd.EncoderLevel
}

// EncodeOption configures Encode.
type EncodeOption func(*encodeConfig)

// WithCompression wraps the envelope in a zstd frame.
func WithCompression() EncodeOption {
	return func(c *encodeConfig) { c.compress = true }
}

// WithCompressionLevel is WithCompression at an explicit level.
func WithCompressionLevel(level zstd.EncoderLevel) EncodeOption {
	return func(c *encodeConfig) {
		c.compress = true
		c.level = level
	}
}

// Encode returns the deterministic envelope for f.
func Encode(f *SkyFile, opts ...EncodeOption) ([]byte, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	cfg := encodeConfig{level: zstd.SpeedDefault}
	for _, opt := range opts {
		opt(&cfg)
	}

	meta, err := json.Marshal(metadata{
		Version:     FormatVersion,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Length:      int64(len(f.Data)),
	})
	if err != nil {
		return nil, fmt.Errorf("skyfile: encode metadata: %w", err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := writeFile(tw, metadataEntry, meta); err != nil {
		return nil, err
	}
	if err := writeFile(tw, contentEntry, f.Data); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	if !cfg.compress {
		return buf.Bytes(), nil
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(cfg.level),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("skyfile: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(buf.Bytes(), nil), nil
}

// IsCompressed reports whether b starts with a zstd frame.
func IsCompressed(b []byte) bool {
	return bytes.HasPrefix(b, zstdMagic)
}

// Decode parses an envelope produced by Encode, compressed or not.
//
// Unknown entries, out-of-order entries and a content length that disagrees
// with metadata.json are rejected.
func Decode(b []byte) (*SkyFile, error) {
	if IsCompressed(b) {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedSize),
		)
		if err != nil {
			return nil, fmt.Errorf("skyfile: zstd decoder: %w", err)
		}
		defer dec.Close()
		raw, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, errors.Join(ErrInvalid, err)
		}
		b = raw
	}

	tr := tar.NewReader(bytes.NewReader(b))
	meta, err := readEntry(tr, metadataEntry)
	if err != nil {
		return nil, err
	}
	var m metadata
	dec := json.NewDecoder(bytes.NewReader(meta))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("metadata: %w", err))
	}
	if m.Version != FormatVersion {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("unsupported version %d", m.Version))
	}

	content, err := readEntry(tr, contentEntry)
	if err != nil {
		return nil, err
	}
	if int64(len(content)) != m.Length {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("content is %d bytes, metadata says %d", len(content), m.Length))
	}
	if _, err := tr.Next(); err != io.EOF {
		if err == nil {
			return nil, errors.Join(ErrInvalid, errors.New("trailing entries"))
		}
		return nil, errors.Join(ErrInvalid, err)
	}

	f := &SkyFile{Filename: m.Filename, ContentType: m.ContentType, Data: content}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func readEntry(tr *tar.Reader, want string) ([]byte, error) {
	h, err := tr.Next()
	if err == io.EOF {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("missing %s", want))
	}
	if err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	if h.Typeflag != tar.TypeReg {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("unexpected tar entry type %v (%s)", h.Typeflag, h.Name))
	}
	if h.Name != want {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("expected %s, got %q", want, h.Name))
	}
	b, err := io.ReadAll(tr)
	if err != nil {
		return nil, errors.Join(ErrInvalid, fmt.Errorf("read %s: %w", want, err))
	}
	return b, nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}
