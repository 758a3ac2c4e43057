package grpccas

import (
	"fmt"
	"math"

	"github.com/ipfs/go-cid"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/skydb/skyfile"
	"xdao.co/skydb/storage"
)

// Struct field names of the blob service.
const (
	fieldCID      = "cid"
	fieldSize     = "size"
	fieldEnvelope = "envelope"
)

// Envelope kinds reported by Put and Stat.
const (
	EnvelopeRaw         = "raw"
	EnvelopeSkyFile     = "skyfile"
	EnvelopeSkyFileZstd = "skyfile+zstd"
)

// BlobInfo describes a stored blob.
type BlobInfo struct {
	ID       cid.Cid
	Size     int64
	Envelope string
}

// IsSkyFile reports whether the blob decodes as a SkyFile envelope.
func (i BlobInfo) IsSkyFile() bool {
	return i.Envelope == EnvelopeSkyFile || i.Envelope == EnvelopeSkyFileZstd
}

// classify reports which envelope kind b is.
func classify(b []byte) string {
	if _, err := skyfile.Decode(b); err != nil {
		return EnvelopeRaw
	}
	if skyfile.IsCompressed(b) {
		return EnvelopeSkyFileZstd
	}
	return EnvelopeSkyFile
}

func encodeRef(id cid.Cid) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldCID: structpb.NewStringValue(id.String()),
	}}
}

func decodeRef(in *structpb.Struct) (cid.Cid, error) {
	v, ok := in.GetFields()[fieldCID]
	if !ok {
		return cid.Undef, storage.ErrInvalidCID
	}
	id, err := cid.Decode(v.GetStringValue())
	if err != nil || !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	return id, nil
}

func encodeInfo(info BlobInfo) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldCID:      structpb.NewStringValue(info.ID.String()),
		fieldSize:     structpb.NewNumberValue(float64(info.Size)),
		fieldEnvelope: structpb.NewStringValue(info.Envelope),
	}}
}

func decodeInfo(in *structpb.Struct) (BlobInfo, error) {
	id, err := decodeRef(in)
	if err != nil {
		return BlobInfo{}, err
	}
	fields := in.GetFields()
	size := fields[fieldSize].GetNumberValue()
	if size < 0 || size > math.MaxInt64 || size != math.Trunc(size) {
		return BlobInfo{}, fmt.Errorf("grpccas: bad %s %v", fieldSize, size)
	}
	env := fields[fieldEnvelope].GetStringValue()
	switch env {
	case EnvelopeRaw, EnvelopeSkyFile, EnvelopeSkyFileZstd:
	default:
		return BlobInfo{}, fmt.Errorf("grpccas: unknown %s %q", fieldEnvelope, env)
	}
	return BlobInfo{ID: id, Size: int64(size), Envelope: env}, nil
}
