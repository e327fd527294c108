//go:build unix

package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kije/typst-mcp/internal/securefile"
)

func TestOpenRootMode(t *testing.T) {
	w, err := Open(Options{Base: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	info, err := os.Stat(w.TempRoot())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestOpenRejectsInsecureExplicitDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shared")
	require.NoError(t, os.Mkdir(dir, 0o700))

	for _, mode := range []os.FileMode{0o770, 0o777, 0o722} {
		require.NoError(t, os.Chmod(dir, mode))
		_, err := Open(Options{TempDir: dir})
		require.Error(t, err, "mode %o", mode)
		assert.Equal(t, securefile.ErrInsecureDirectory, securefile.CodeOf(err), "mode %o", mode)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, mode, info.Mode().Perm(), "mode of an existing dir must be left alone")
	}

	require.NoError(t, os.Chmod(dir, 0o700))
	w, err := Open(Options{TempDir: dir})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	link := filepath.Join(t.TempDir(), "link")
	require.NoError(t, os.Symlink(dir, link))
	_, err = Open(Options{TempDir: link})
	require.Error(t, err)
	assert.Equal(t, securefile.ErrInsecureDirectory, securefile.CodeOf(err))
}

func TestLockHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), lockFileName)
	f, err := lockRoot(path)
	require.NoError(t, err)

	held, err := lockHeld(path)
	require.NoError(t, err)
	assert.True(t, held)

	_, err = lockRoot(path)
	assert.Error(t, err, "second lock must fail")

	f.Close()
	held, err = lockHeld(path)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestOpenCreatesMissingExplicitDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")
	w, err := Open(Options{TempDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}
