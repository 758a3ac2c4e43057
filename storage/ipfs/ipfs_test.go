package ipfs

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"

	"xdao.co/skydb/cidutil"
	"xdao.co/skydb/storage"
	"xdao.co/skydb/storage/testkit"
)

func TestIPFS_Conformance(t *testing.T) {
	if _, err := exec.LookPath("ipfs"); err != nil {
		t.Skip("ipfs binary not installed")
	}
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		repo := t.TempDir()
		cmd := exec.Command("ipfs", "init", "--profile=test")
		cmd.Env = append(os.Environ(), "IPFS_PATH="+repo)
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Skipf("ipfs init failed: %v: %s", err, out)
		}
		return New(Options{RepoPath: repo})
	})
}

func TestIPFS_MissingBinary(t *testing.T) {
	cas := New(Options{Bin: "/nonexistent/ipfs-binary"})
	if _, err := cas.Put(context.Background(), []byte("x")); err == nil {
		t.Fatalf("expected error for missing binary")
	}
	id, _ := cidutil.Sum([]byte("x"))
	if cas.Has(context.Background(), id) {
		t.Fatalf("Has should be false when the binary is missing")
	}
}

func TestIsLikelyNotFound(t *testing.T) {
	if !isLikelyNotFound(errors.New("ipfs: block was not found locally (offline)")) {
		t.Fatalf("expected not-found classification")
	}
	if isLikelyNotFound(errors.New("ipfs: permission denied")) {
		t.Fatalf("unexpected not-found classification")
	}
}
