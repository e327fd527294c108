//go:build unix

package securefile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// createFlags refuses to follow a symlink planted at the final component and
// fails if anything already exists there.
const createFlags = os.O_RDWR | os.O_CREATE | os.O_EXCL | unix.O_NOFOLLOW | unix.O_CLOEXEC

// fchmod changes the mode through the open descriptor, never by path.
func fchmod(f *os.File, mode os.FileMode) error {
	return unix.Fchmod(int(f.Fd()), uint32(mode.Perm())) //nolint:gosec // Fd() fits in int on all supported platforms
}

func verifyReadOnly(info os.FileInfo) error {
	if perm := info.Mode().Perm(); perm != 0o400 {
		return fmt.Errorf("mode is %04o, want 0400", perm)
	}
	return nil
}

func removeFile(path string) error {
	return os.Remove(path)
}
