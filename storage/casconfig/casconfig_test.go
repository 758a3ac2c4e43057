package casconfig

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/casregistry"

	_ "xdao.co/skydb/storage/localfs"
	_ "xdao.co/skydb/storage/memcas"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"empty", Config{}, false},
		{"single", Config{Backends: []BackendConfig{{Name: "memory"}}}, true},
		{"missing name", Config{Backends: []BackendConfig{{ID: "x"}}}, false},
		{"duplicate id", Config{Backends: []BackendConfig{{Name: "memory"}, {Name: "memory"}}}, false},
		{"aliased duplicates", Config{Backends: []BackendConfig{{Name: "memory", ID: "a"}, {Name: "memory", ID: "b"}}}, true},
		{"bad policy", Config{WritePolicy: "some", Backends: []BackendConfig{{Name: "memory"}}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestOpenSingleBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Backends: []BackendConfig{{Name: "localfs", Config: map[string]string{"localfs-dir": dir}}}}
	cas, closeFn, err := cfg.Open(context.Background(), casregistry.UsageClient, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	id, err := cas.Put(context.Background(), []byte("via config"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, id.String()[:2], id.String())); err != nil {
		t.Fatalf("expected object on disk: %v", err)
	}
}

func TestOpenWritePolicies(t *testing.T) {
	backends := []BackendConfig{{Name: "memory", ID: "a"}, {Name: "memory", ID: "b"}}

	cas, _, err := Config{Backends: backends}.Open(context.Background(), casregistry.UsageClient, "")
	if err != nil {
		t.Fatalf("Open(first): %v", err)
	}
	if _, ok := cas.(storage.MultiCAS); !ok {
		t.Fatalf("expected MultiCAS, got %T", cas)
	}

	cas, _, err = Config{WritePolicy: "all", Backends: backends}.Open(context.Background(), casregistry.UsageClient, "b")
	if err != nil {
		t.Fatalf("Open(all): %v", err)
	}
	r, ok := cas.(storage.ReplicatingCAS)
	if !ok {
		t.Fatalf("expected ReplicatingCAS, got %T", cas)
	}
	if r.Backends[0].Name != "b" {
		t.Fatalf("preferred backend not first: %v", r.Backends[0].Name)
	}

	if _, _, err := (Config{Backends: backends}).Open(context.Background(), casregistry.UsageClient, "zzz"); err == nil {
		t.Fatalf("expected error for unknown preferred backend")
	}
}

func TestOpenRejectsUnknownOption(t *testing.T) {
	cfg := Config{Backends: []BackendConfig{{Name: "memory", Config: map[string]string{"nope": "1"}}}}
	if _, _, err := cfg.Open(context.Background(), casregistry.UsageClient, ""); err == nil {
		t.Fatalf("expected unknown option error")
	}
	cfg = Config{Backends: []BackendConfig{{Name: "localfs"}}}
	if _, _, err := cfg.Open(context.Background(), casregistry.UsageClient, ""); err == nil {
		t.Fatalf("expected missing --localfs-dir error")
	}
}

func TestParseAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cas.json")
	body := `{"write_policy":"all","backends":[{"name":"memory","id":"m1"},{"name":"memory","id":"m2"}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.WritePolicy != "all" || len(cfg.Backends) != 2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := Parse([]byte(`{`)); err == nil {
		t.Fatalf("expected JSON error")
	}
	if _, err := LoadFile(""); err == nil {
		t.Fatalf("expected empty path error")
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cas.yaml")
	body := "write_policy: all\nbackends:\n  - name: memory\n    id: m1\n  - name: localfs\n    id: disk\n    config:\n      localfs-dir: " + filepath.ToSlash(dir) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.WritePolicy != "all" || len(cfg.Backends) != 2 || cfg.Backends[1].Config["localfs-dir"] != filepath.ToSlash(dir) {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := ParseYAML([]byte("backends:\n  - name: memory\n    colour: blue\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestRegistryFlagsAndOpen(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)
	dir := t.TempDir()
	if err := fs.Parse([]string{"-localfs-dir", dir}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cas, _, err := casregistry.Open(context.Background(), "localfs", casregistry.UsageDaemon)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := cas.Put(context.Background(), []byte("flags")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, _, err := casregistry.Open(context.Background(), "unknown", casregistry.UsageDaemon); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	names := casregistry.Names(casregistry.UsageClient)
	if len(names) < 2 || names[0] > names[1] {
		t.Fatalf("expected sorted backend names, got %v", names)
	}
}
