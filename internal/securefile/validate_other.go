//go:build !unix && !windows

package securefile

import (
	"errors"
	"fmt"
	"os"
)

// ValidateDirectory checks that dir is a real directory. Ownership cannot be
// checked on this platform.
func ValidateDirectory(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return newError(ErrInsecureDirectory, dir, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return newError(ErrInsecureDirectory, dir, errors.New("is a symlink"))
	}
	if !info.IsDir() {
		return newError(ErrInsecureDirectory, dir, fmt.Errorf("not a directory (mode %s)", info.Mode()))
	}
	return nil
}
