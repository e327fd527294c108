//go:build unix

package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// verifyLauncherBinary checks that the launcher binary, after resolving
// symlinks (npm installs bin entries as links), is a regular file owned by
// root or the current user and not writable by group or others. A launcher
// another user can replace would see every settings file.
func verifyLauncherBinary(path string) error {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return err
	}
	fi, err := os.Lstat(resolved)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return errors.New("not a regular file")
	}
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return errors.New("cannot determine owner")
	}
	uid := os.Getuid()
	if stat.Uid != 0 && (uid < 0 || stat.Uid != uint32(uid)) { //nolint:gosec // uid is non-negative on Unix
		return fmt.Errorf("owned by uid %d", stat.Uid)
	}
	if perm := fi.Mode().Perm(); perm&0o022 != 0 {
		return fmt.Errorf("%s is writable by group or others (mode %04o)", resolved, perm)
	}
	return nil
}
