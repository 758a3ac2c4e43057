// Package grpcregistry carries registry.Transport over gRPC.
package grpcregistry

import (
	"context"
	"crypto/ed25519"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"xdao.co/skydb/registry"
)

// Client implements registry.Transport over the registry gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client RegistryClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ registry.Transport = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, registry.E(registry.KindTransport, "grpcregistry.Dial", target, err)
	}
	return &Client{cc: cc, client: NewRegistryClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Lookup(ctx context.Context, pub ed25519.PublicKey, dataKey []byte) (registry.SignedEntry, error) {
	const op = "grpcregistry.Lookup"
	req, err := encodeLookupRequest(pub, dataKey)
	if err != nil {
		return registry.SignedEntry{}, err
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	resp, err := c.client.Lookup(ctx, req)
	if err != nil {
		return registry.SignedEntry{}, fromStatus(op, err)
	}
	return decodeLookupResponse(resp, dataKey)
}

func (c *Client) Update(ctx context.Context, pub ed25519.PublicKey, se registry.SignedEntry) error {
	const op = "grpcregistry.Update"
	req, err := encodeUpdateRequest(pub, se)
	if err != nil {
		return err
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	if _, err := c.client.Update(ctx, req); err != nil {
		return fromStatus(op, err)
	}
	return nil
}

func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
