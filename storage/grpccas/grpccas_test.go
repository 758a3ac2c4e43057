package grpccas

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/skyfile"
	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/localfs"
	"xdao.co/skydb/storage/memcas"
	"xdao.co/skydb/storage/testkit"
)

func serveWith(t *testing.T, srvImpl *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterBlobsServer(srv, srvImpl)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func serve(t *testing.T, cas storage.CAS) *Client {
	t.Helper()
	return serveWith(t, &Server{CAS: cas})
}

func envelope(t *testing.T, compress bool) []byte {
	t.Helper()
	var opts []skyfile.EncodeOption
	if compress {
		opts = append(opts, skyfile.WithCompression())
	}
	b, err := skyfile.Encode(skyfile.New("notes.txt", []byte("hello envelope")), opts...)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return b
}

func TestGRPCCAS_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return serve(t, memcas.New())
	})
}

func TestGRPCCAS_LocalFS_RoundTrip(t *testing.T) {
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := serve(t, cas)
	ctx := context.Background()

	payload := []byte("hello grpccas")
	id, err := client.Put(ctx, payload)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !client.Has(ctx, id) {
		t.Fatalf("Has: expected true")
	}
	got, err := client.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestGRPCCAS_ReportsEnvelopeKind(t *testing.T) {
	client := serve(t, memcas.New())
	ctx := context.Background()

	cases := []struct {
		name string
		blob []byte
		want string
	}{
		{"raw", []byte("not an envelope"), EnvelopeRaw},
		{"tar", envelope(t, false), EnvelopeSkyFile},
		{"zstd", envelope(t, true), EnvelopeSkyFileZstd},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, err := client.PutInfo(ctx, tc.blob)
			if err != nil {
				t.Fatalf("PutInfo: %v", err)
			}
			if info.Envelope != tc.want || info.Size != int64(len(tc.blob)) {
				t.Fatalf("PutInfo = %+v, want envelope %q size %d", info, tc.want, len(tc.blob))
			}
			stat, err := client.Stat(ctx, info.ID)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if stat != info {
				t.Fatalf("Stat = %+v, want %+v", stat, info)
			}
			if stat.IsSkyFile() != (tc.want != EnvelopeRaw) {
				t.Fatalf("IsSkyFile = %v for %q", stat.IsSkyFile(), tc.want)
			}
		})
	}
}

func TestGRPCCAS_RequireEnvelope(t *testing.T) {
	cas := memcas.New()
	client := serveWith(t, &Server{CAS: cas, RequireEnvelope: true})
	ctx := context.Background()

	_, err := client.Put(ctx, []byte("raw bytes"))
	if !errors.Is(err, ErrNotEnvelope) || !errors.Is(err, skyfile.ErrInvalid) {
		t.Fatalf("got %v want ErrNotEnvelope", err)
	}
	raw, _ := cidutil.Sum([]byte("raw bytes"))
	if cas.Has(ctx, raw) {
		t.Fatalf("rejected blob reached the store")
	}

	// skyfile.Store over the client sees the rejection as an invalid envelope
	// and accepts real ones.
	store := skyfile.Store{CAS: client, Compress: true}
	id, err := store.Put(ctx, skyfile.New("a.txt", []byte("ok")))
	if err != nil {
		t.Fatalf("Store.Put: %v", err)
	}
	f, err := store.Get(ctx, id)
	if err != nil || string(f.Data) != "ok" {
		t.Fatalf("Store.Get = %v, %v", f, err)
	}
}

func TestGRPCCAS_NotFoundMapsToStorageError(t *testing.T) {
	client := serve(t, memcas.New())
	id, _ := cidutil.Sum([]byte("never stored"))
	if _, err := client.Get(context.Background(), id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", err)
	}
	if _, err := client.Stat(context.Background(), id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Stat: got %v want ErrNotFound", err)
	}
}

func TestGRPCCAS_CallerContextCancels(t *testing.T) {
	client := serve(t, memcas.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Put(ctx, []byte("late")); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v want context.Canceled", err)
	}
}

func TestServer_MissingCAS(t *testing.T) {
	client := serve(t, nil)
	_, err := client.Put(context.Background(), []byte("x"))
	if err == nil {
		t.Fatalf("expected error when server has no CAS")
	}
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, ErrNotEnvelope) {
		t.Fatalf("missing CAS reported as a storage outcome: %v", err)
	}
	if code := status.Code(errors.Unwrap(err)); code != codes.Unavailable {
		t.Fatalf("code = %v want Unavailable", code)
	}
}

func TestServer_RejectsBadReference(t *testing.T) {
	srv := &Server{CAS: memcas.New()}
	for _, in := range []*structpb.Struct{
		{},
		{Fields: map[string]*structpb.Value{fieldCID: structpb.NewStringValue("not-a-cid")}},
		{Fields: map[string]*structpb.Value{fieldCID: structpb.NewNumberValue(7)}},
	} {
		if _, err := srv.Get(context.Background(), in); status.Code(err) != codes.InvalidArgument {
			t.Fatalf("Get(%v) code = %v want InvalidArgument", in, status.Code(err))
		}
	}
}

func TestStatusMappingRoundTrip(t *testing.T) {
	for _, err := range []error{
		storage.ErrNotFound,
		storage.ErrInvalidCID,
		storage.ErrCIDMismatch,
		storage.ErrImmutable,
		ErrNotEnvelope,
		context.Canceled,
		context.DeadlineExceeded,
	} {
		got := fromStatus("Get", toStatus(err))
		if !errors.Is(got, err) {
			t.Fatalf("round trip of %v gave %v", err, got)
		}
	}
	other := fromStatus("Get", toStatus(errors.New("disk on fire")))
	if status.Code(errors.Unwrap(other)) != codes.Internal {
		t.Fatalf("unexpected mapping for unknown error: %v", other)
	}
}

func TestDecodeInfoRejectsBadFields(t *testing.T) {
	id, _ := cidutil.Sum([]byte("x"))
	good := encodeInfo(BlobInfo{ID: id, Size: 1, Envelope: EnvelopeRaw})
	if _, err := decodeInfo(good); err != nil {
		t.Fatalf("decodeInfo: %v", err)
	}
	bad := []func(*structpb.Struct){
		func(s *structpb.Struct) { s.Fields[fieldSize] = structpb.NewNumberValue(-1) },
		func(s *structpb.Struct) { s.Fields[fieldSize] = structpb.NewNumberValue(1.5) },
		func(s *structpb.Struct) { s.Fields[fieldEnvelope] = structpb.NewStringValue("zip") },
		func(s *structpb.Struct) { delete(s.Fields, fieldCID) },
	}
	for i, mutate := range bad {
		s := encodeInfo(BlobInfo{ID: id, Size: 1, Envelope: EnvelopeRaw})
		mutate(s)
		if _, err := decodeInfo(s); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
