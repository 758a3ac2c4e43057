package grpcregistry

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/skydb/registry"
)

// toStatus maps a registry error to the gRPC status sent to clients.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, registry.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	switch registry.KindOf(err) {
	case registry.KindIntegrity:
		return status.Error(codes.PermissionDenied, err.Error())
	case registry.KindEncoding:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatus maps an RPC failure back into the registry taxonomy. Only
// Aborted means a revision conflict; server-side faults stay Transport.
func fromStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return registry.E(registry.KindTransport, op, "rpc failed", err)
	}
	switch st.Code() {
	case codes.NotFound:
		return registry.E(registry.KindNotFound, op, st.Message(), registry.ErrNotFound)
	case codes.Aborted:
		return registry.E(registry.KindConflict, op, st.Message(), registry.ErrConflict)
	case codes.PermissionDenied:
		return registry.E(registry.KindIntegrity, op, st.Message(), nil)
	case codes.InvalidArgument:
		return registry.E(registry.KindEncoding, op, st.Message(), nil)
	default:
		return registry.E(registry.KindTransport, op, st.Code().String()+": "+st.Message(), err)
	}
}
