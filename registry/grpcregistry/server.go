package grpcregistry

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/skydb/registry"
)

// Server exposes a registry.Transport over the registry gRPC service.
//
// The backing store is responsible for admission (signature and revision
// checks); see registry.Admit.
type Server struct {
	UnimplementedRegistryServer
	Store  registry.Transport
	Logger *slog.Logger
}

var errMissingStore = status.Error(codes.Unavailable, "missing registry store")

// log returns the logger, falling back to a discard logger if nil.
func (s *Server) log() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Server) Lookup(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s == nil || s.Store == nil {
		return nil, errMissingStore
	}
	pub, dataKey, err := decodeLookupRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}
	se, err := s.Store.Lookup(ctx, pub, dataKey)
	if err != nil {
		if !errors.Is(err, registry.ErrNotFound) {
			s.log().WarnContext(ctx, "lookup failed", "key", registry.EntryKey(pub, dataKey), "error", err)
		}
		return nil, toStatus(err)
	}
	resp, err := encodeLookupResponse(se)
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) Update(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	if s == nil || s.Store == nil {
		return nil, errMissingStore
	}
	pub, se, err := decodeUpdateRequest(in)
	if err != nil {
		return nil, toStatus(err)
	}
	if err := s.Store.Update(ctx, pub, se); err != nil {
		s.log().InfoContext(ctx, "update rejected",
			"key", registry.EntryKey(pub, se.DataKey),
			"revision", se.Revision,
			"error", err)
		return nil, toStatus(err)
	}
	s.log().DebugContext(ctx, "update accepted",
		"key", registry.EntryKey(pub, se.DataKey),
		"revision", se.Revision)
	return &emptypb.Empty{}, nil
}
