//go:build unix

package securefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalModeIsOwnerReadOnly(t *testing.T) {
	sf, err := Create(t.TempDir(), staticContent("{}"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sf.Release() })

	info, err := os.Stat(sf.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o400), info.Mode().Perm())

	if os.Geteuid() == 0 {
		t.Skip("root bypasses mode bits")
	}
	_, err = os.OpenFile(sf.Path(), os.O_WRONLY, 0)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestValidateDirectoryGroupWritable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o770))

	err := ValidateDirectory(dir)
	require.Error(t, err)
	assert.Equal(t, ErrInsecureDirectory, CodeOf(err))

	_, err = Create(dir, staticContent("{}"), Options{})
	require.Error(t, err)
	assert.Equal(t, ErrInsecureDirectory, CodeOf(err))
	assert.Empty(t, dirEntries(t, dir))
}

func TestValidateDirectoryWorldWritable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o707))
	assert.Equal(t, ErrInsecureDirectory, CodeOf(ValidateDirectory(dir)))
}

func TestValidateDirectoryRejectsSymlink(t *testing.T) {
	base := t.TempDir()
	realDir := filepath.Join(base, "realDir")
	require.NoError(t, os.Mkdir(realDir, 0o700))
	link := filepath.Join(base, "link")
	require.NoError(t, os.Symlink(realDir, link))

	assert.NoError(t, ValidateDirectory(realDir))
	assert.Equal(t, ErrInsecureDirectory, CodeOf(ValidateDirectory(link)))
}

func TestValidateDirectoryRejectsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.Equal(t, ErrInsecureDirectory, CodeOf(ValidateDirectory(path)))
}

func TestAllocateRefusesSymlinkAtTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "victim")
	require.NoError(t, os.WriteFile(target, []byte("original"), 0o600))
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "p-planted.s")))
	withSuffixes(t, "planted", "clean")

	f, path, err := allocate(dir, "p-", ".s")
	require.NoError(t, err)
	f.Close()
	assert.Equal(t, filepath.Join(dir, "p-clean.s"), path)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
