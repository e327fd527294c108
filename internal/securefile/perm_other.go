//go:build !unix

package securefile

import (
	"fmt"
	"os"
)

const createFlags = os.O_RDWR | os.O_CREATE | os.O_EXCL

// On Windows f.Chmod goes through the handle and only toggles
// FILE_ATTRIBUTE_READONLY.
func fchmod(f *os.File, mode os.FileMode) error {
	return f.Chmod(mode)
}

func verifyReadOnly(info os.FileInfo) error {
	if perm := info.Mode().Perm(); perm&0o222 != 0 {
		return fmt.Errorf("file is still writable (mode %04o)", perm)
	}
	return nil
}

// removeFile clears the read-only attribute first; Windows refuses to delete
// read-only files.
func removeFile(path string) error {
	_ = os.Chmod(path, 0o600)
	return os.Remove(path)
}
