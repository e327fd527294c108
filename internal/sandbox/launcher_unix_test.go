//go:build unix

package sandbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kije/typst-mcp/internal/types"
)

func writeExecutable(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o700))
	require.NoError(t, os.Chmod(path, mode))
}

func TestVerifyLauncherBinary(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "srt")
	writeExecutable(t, good, "#!/bin/sh\n", 0o755)
	assert.NoError(t, verifyLauncherBinary(good))

	// npm links bin entries; the target is what gets checked.
	link := filepath.Join(dir, "srt-link")
	require.NoError(t, os.Symlink(good, link))
	assert.NoError(t, verifyLauncherBinary(link))

	loose := filepath.Join(dir, "srt-loose")
	writeExecutable(t, loose, "#!/bin/sh\n", 0o775)
	assert.Error(t, verifyLauncherBinary(loose))

	looseLink := filepath.Join(dir, "srt-loose-link")
	require.NoError(t, os.Symlink(loose, looseLink))
	assert.Error(t, verifyLauncherBinary(looseLink))

	assert.Error(t, verifyLauncherBinary(dir), "directories are rejected")
	assert.Error(t, verifyLauncherBinary(filepath.Join(dir, "missing")))
}

func TestDetectInstalled(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "srt")
	writeExecutable(t, srt, "#!/bin/sh\n", 0o755)

	l, err := Detect(context.Background(), DetectOptions{
		lookPath: fakeLookPath(map[string]string{"srt": srt, "npx": "/unused/npx"}),
		probe: func(context.Context, string, ...string) error {
			t.Fatal("npx must not be probed when srt is usable")
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, types.SandboxSRTInstalled, l.Method)
	assert.Equal(t, srt, l.Path)
}

func TestDetectRejectsWritableSrt(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "srt")
	writeExecutable(t, srt, "#!/bin/sh\n", 0o777)

	l, err := Detect(context.Background(), DetectOptions{
		lookPath: fakeLookPath(map[string]string{"srt": srt, "npx": "/opt/node/bin/npx"}),
		probe:    func(context.Context, string, ...string) error { return nil },
	})
	require.NoError(t, err)
	assert.Equal(t, types.SandboxSRTNpx, l.Method)
}
