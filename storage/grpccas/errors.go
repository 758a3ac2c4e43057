package grpccas

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/skydb/skyfile"
	"xdao.co/skydb/storage"
)

// ErrNotEnvelope is returned by a server with RequireEnvelope set when the
// uploaded blob is not a SkyFile envelope. It matches skyfile.ErrInvalid.
var ErrNotEnvelope = fmt.Errorf("grpccas: blob is not a skyfile envelope: %w", skyfile.ErrInvalid)

var errMissingCAS = status.Error(codes.Unavailable, "missing blob store")

// statusCodes pairs storage sentinels with the codes sent for them. The
// table is read in both directions.
var statusCodes = []struct {
	err  error
	code codes.Code
}{
	{storage.ErrNotFound, codes.NotFound},
	{storage.ErrInvalidCID, codes.InvalidArgument},
	{storage.ErrCIDMismatch, codes.DataLoss},
	{storage.ErrImmutable, codes.AlreadyExists},
	{ErrNotEnvelope, codes.FailedPrecondition},
	{context.Canceled, codes.Canceled},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
}

// toStatus maps a storage error to the gRPC status sent to clients.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return status.Error(sc.code, err.Error())
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus maps an RPC failure back to the storage sentinels so callers
// can keep using errors.Is. Other failures are wrapped unchanged.
func fromStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		for _, sc := range statusCodes {
			if st.Code() == sc.code {
				return fmt.Errorf("grpccas.%s: %w", op, sc.err)
			}
		}
	}
	return fmt.Errorf("grpccas.%s: %w", op, err)
}
