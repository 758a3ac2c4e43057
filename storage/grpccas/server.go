package grpccas

import (
	"context"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/storage"
)

// Server exposes a storage.CAS over the blob service.
type Server struct {
	UnimplementedBlobsServer
	CAS storage.CAS

	// RequireEnvelope rejects uploads that are not SkyFile envelopes.
	RequireEnvelope bool

	Logger *slog.Logger
}

func (s *Server) log() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if s == nil || s.CAS == nil {
		return nil, errMissingCAS
	}
	b := in.GetValue()
	env := classify(b)
	if s.RequireEnvelope && env == EnvelopeRaw {
		s.log().InfoContext(ctx, "blob rejected", "size", len(b), "error", ErrNotEnvelope)
		return nil, toStatus(ErrNotEnvelope)
	}
	expected, err := cidutil.Sum(b)
	if err != nil {
		return nil, toStatus(err)
	}
	id, err := s.CAS.Put(ctx, b)
	if err != nil {
		s.log().WarnContext(ctx, "blob store put failed", "cid", expected.String(), "error", err)
		return nil, toStatus(err)
	}
	// The backend's CID must agree with the one derived here.
	if !id.Equals(expected) {
		return nil, toStatus(storage.ErrCIDMismatch)
	}
	s.log().DebugContext(ctx, "blob stored", "cid", id.String(), "size", len(b), "envelope", env)
	return encodeInfo(BlobInfo{ID: id, Size: int64(len(b)), Envelope: env}), nil
}

func (s *Server) Get(ctx context.Context, in *structpb.Struct) (*wrapperspb.BytesValue, error) {
	b, err := s.load(ctx, in)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *structpb.Struct) (*wrapperspb.BoolValue, error) {
	if s == nil || s.CAS == nil {
		return nil, errMissingCAS
	}
	id, err := decodeRef(in)
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.Bool(s.CAS.Has(ctx, id)), nil
}

func (s *Server) Stat(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	b, err := s.load(ctx, in)
	if err != nil {
		return nil, err
	}
	id, _ := decodeRef(in)
	return encodeInfo(BlobInfo{ID: id, Size: int64(len(b)), Envelope: classify(b)}), nil
}

// load fetches the referenced blob and checks it against its CID. Errors are
// already gRPC statuses.
func (s *Server) load(ctx context.Context, in *structpb.Struct) ([]byte, error) {
	if s == nil || s.CAS == nil {
		return nil, errMissingCAS
	}
	id, err := decodeRef(in)
	if err != nil {
		return nil, toStatus(err)
	}
	b, err := s.CAS.Get(ctx, id)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.log().WarnContext(ctx, "blob store get failed", "cid", id.String(), "error", err)
		}
		return nil, toStatus(err)
	}
	if !cidutil.Matches(id, b) {
		return nil, toStatus(storage.ErrCIDMismatch)
	}
	return b, nil
}
