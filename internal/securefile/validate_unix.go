//go:build unix

package securefile

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ValidateDirectory checks that dir is a real directory owned by the
// effective user and not writable by group or others. Symlinks are rejected
// so the check cannot be redirected after it passes.
func ValidateDirectory(dir string) error {
	fi, err := os.Lstat(dir)
	if err != nil {
		return newError(ErrInsecureDirectory, dir, err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return newError(ErrInsecureDirectory, dir, errors.New("directory is a symlink"))
	}
	if !fi.IsDir() {
		return newError(ErrInsecureDirectory, dir, errors.New("not a directory"))
	}
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return newError(ErrInsecureDirectory, dir, errors.New("cannot determine directory owner"))
	}
	euid := os.Geteuid()
	if euid < 0 || stat.Uid != uint32(euid) { //nolint:gosec // euid is non-negative on Unix
		return newError(ErrInsecureDirectory, dir, fmt.Errorf("owned by uid %d, not the current user (%d)", stat.Uid, euid))
	}
	if perm := fi.Mode().Perm(); perm&0o022 != 0 {
		return newError(ErrInsecureDirectory, dir, fmt.Errorf("mode %04o is writable by group or others", perm))
	}
	return nil
}
