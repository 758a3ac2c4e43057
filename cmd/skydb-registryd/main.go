// Command skydb-registryd serves a SkyDB registry and its blob store over gRPC.
//
// Both services share one listener: skydb.registry.v1.Registry backed by an
// in-memory or PostgreSQL store, and skydb.blob.v1.Blobs backed by any linked
// casregistry backend. With -require-envelope the blob service only accepts
// SkyFile envelopes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"

	"xdao.co/skydb/registry"
	"xdao.co/skydb/registry/grpcregistry"
	"xdao.co/skydb/registry/memregistry"
	"xdao.co/skydb/registry/pgregistry"
	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/casconfig"
	"xdao.co/skydb/storage/casregistry"
	"xdao.co/skydb/storage/grpccas"

	_ "xdao.co/skydb/storage/ipfs"
	_ "xdao.co/skydb/storage/localfs"
	_ "xdao.co/skydb/storage/memcas"
)

// errUsage marks flag and configuration mistakes (exit status 2).
var errUsage = errors.New("usage")

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

type config struct {
	listen       string
	registryKind string
	databaseURL  string
	backend      string
	casConfig    string
	listBackends bool
	logLevel     slog.Level

	requireEnvelope bool
}

func parseFlags(args []string, stderr io.Writer) (config, error) {
	var cfg config
	fs := flag.NewFlagSet("skydb-registryd", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cfg.listen, "listen", "127.0.0.1:7777", "listen address")
	fs.StringVar(&cfg.registryKind, "registry", "memory", "registry store: memory or postgres")
	fs.StringVar(&cfg.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL DSN (for --registry=postgres; default $DATABASE_URL)")
	fs.StringVar(&cfg.backend, "backend", "localfs", "CAS backend name")
	fs.StringVar(&cfg.casConfig, "cas-config", "", "JSON CAS config (overrides --backend)")
	fs.BoolVar(&cfg.listBackends, "list-backends", false, "List supported backends and exit")
	fs.BoolVar(&cfg.requireEnvelope, "require-envelope", false, "Reject blob uploads that are not SkyFile envelopes")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn or error")

	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return cfg, fmt.Errorf("%w: %v", errUsage, err)
	}
	if err := cfg.logLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return cfg, fmt.Errorf("%w: --log-level: %v", errUsage, err)
	}
	switch cfg.registryKind {
	case "memory":
	case "postgres":
		if strings.TrimSpace(cfg.databaseURL) == "" && !cfg.listBackends {
			return cfg, fmt.Errorf("%w: --registry=postgres needs --database-url or DATABASE_URL", errUsage)
		}
	default:
		return cfg, fmt.Errorf("%w: unknown --registry %q", errUsage, cfg.registryKind)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if cfg.listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return nil
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.logLevel}))

	store, closeStore, err := openRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	cas, closeCAS, err := openCAS(ctx, cfg)
	if err != nil {
		return err
	}
	if closeCAS != nil {
		defer func() { _ = closeCAS() }()
	}

	lis, err := net.Listen("tcp", cfg.listen)
	if err != nil {
		return err
	}
	defer lis.Close()

	return serve(ctx, lis, store, cas, logger, cfg)
}

func serve(ctx context.Context, lis net.Listener, store registry.Transport, cas storage.CAS, logger *slog.Logger, cfg config) error {
	s := grpc.NewServer()
	grpcregistry.RegisterRegistryServer(s, &grpcregistry.Server{Store: store, Logger: logger})
	grpccas.RegisterBlobsServer(s, &grpccas.Server{CAS: cas, RequireEnvelope: cfg.requireEnvelope, Logger: logger})

	done := make(chan struct{})
	defer close(done)
	go stopOnCancel(ctx, done, func() {
		logger.Info("shutting down")
		s.GracefulStop()
	})

	logger.Info("skydb-registryd listening",
		"addr", lis.Addr().String(),
		"registry", cfg.registryKind,
		"backend", backendLabel(cfg),
		"require_envelope", cfg.requireEnvelope)
	if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// stopOnCancel calls stop once ctx is cancelled. It returns without calling
// stop when done is closed first.
func stopOnCancel(ctx context.Context, done <-chan struct{}, stop func()) {
	select {
	case <-ctx.Done():
		stop()
	case <-done:
	}
}

func backendLabel(cfg config) string {
	if cfg.casConfig != "" {
		return "config:" + cfg.casConfig
	}
	return cfg.backend
}

func openRegistry(ctx context.Context, cfg config) (registry.Transport, func(), error) {
	switch cfg.registryKind {
	case "postgres":
		s, err := pgregistry.Open(ctx, cfg.databaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return memregistry.New(), func() {}, nil
	}
}

func openCAS(ctx context.Context, cfg config) (storage.CAS, func() error, error) {
	if cfg.casConfig == "" {
		return casregistry.Open(ctx, cfg.backend, casregistry.UsageDaemon)
	}
	c, err := casconfig.LoadFile(cfg.casConfig)
	if err != nil {
		return nil, nil, err
	}
	return c.Open(ctx, casregistry.UsageDaemon, "")
}
