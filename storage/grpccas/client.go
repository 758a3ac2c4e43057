package grpccas

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/storage"
)

// Client implements storage.CAS over the blob service of skydb-registryd.
type Client struct {
	cc     *grpc.ClientConn
	client BlobsClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.CAS = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options (tests use it for bufconn).
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
		return nil, err
	}
	return &Client{cc: cc, client: NewBlobsClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Put uploads data and returns its CID. The server's CID must match the one
// computed locally.
func (c *Client) Put(ctx context.Context, data []byte) (cid.Cid, error) {
	info, err := c.PutInfo(ctx, data)
	if err != nil {
		return cid.Undef, err
	}
	return info.ID, nil
}

// PutInfo is Put returning the server's description of the stored blob.
func (c *Client) PutInfo(ctx context.Context, data []byte) (BlobInfo, error) {
	if c == nil || c.client == nil {
		return BlobInfo{}, storage.ErrNoBackends
	}
	expected, err := cidutil.Sum(data)
	if err != nil {
		return BlobInfo{}, err
	}

	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return BlobInfo{}, fromStatus("Put", err)
	}
	info, err := decodeInfo(reply)
	if err != nil {
		return BlobInfo{}, err
	}
	if !info.ID.Equals(expected) || info.Size != int64(len(data)) {
		return BlobInfo{}, storage.ErrCIDMismatch
	}
	return info, nil
}

func (c *Client) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	if c == nil || c.client == nil {
		return nil, storage.ErrNoBackends
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Get(ctx, encodeRef(id))
	if err != nil {
		return nil, fromStatus("Get", err)
	}
	b := reply.GetValue()
	if !cidutil.Matches(id, b) {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *Client) Has(ctx context.Context, id cid.Cid) bool {
	if !id.Defined() || c == nil || c.client == nil {
		return false
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Has(ctx, encodeRef(id))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

// Stat describes the blob at id without downloading it.
func (c *Client) Stat(ctx context.Context, id cid.Cid) (BlobInfo, error) {
	if !id.Defined() {
		return BlobInfo{}, storage.ErrInvalidCID
	}
	if c == nil || c.client == nil {
		return BlobInfo{}, storage.ErrNoBackends
	}
	ctx, cancel := c.rpcContext(ctx)
	defer cancel()

	reply, err := c.client.Stat(ctx, encodeRef(id))
	if err != nil {
		return BlobInfo{}, fromStatus("Stat", err)
	}
	info, err := decodeInfo(reply)
	if err != nil {
		return BlobInfo{}, err
	}
	if !info.ID.Equals(id) {
		return BlobInfo{}, storage.ErrCIDMismatch
	}
	return info, nil
}

func (c *Client) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.Timeout)
}
