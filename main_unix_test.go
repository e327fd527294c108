//go:build unix

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kije/typst-mcp/internal/securefile"
)

func TestOpenAppRejectsGroupWritableTempDir(t *testing.T) {
	isolate(t)
	dir := filepath.Join(t.TempDir(), "shared")
	if err := os.Mkdir(dir, 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0o770); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TYPST_MCP_TEMP_DIR", dir)

	_, err := openApp(context.Background(), flagsFor(t, "--disable-sandbox"))
	if securefile.CodeOf(err) != securefile.ErrInsecureDirectory {
		t.Fatalf("got %v, want insecure directory", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o770 {
		t.Errorf("mode changed to %o", info.Mode().Perm())
	}
}
