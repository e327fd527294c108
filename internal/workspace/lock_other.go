//go:build !unix && !windows

package workspace

import (
	"fmt"
	"os"

	"github.com/kije/typst-mcp/internal/fileutil"
)

// lockRoot records the pid without locking; there is no portable file lock.
func lockRoot(path string) (*os.File, error) {
	f, err := fileutil.SecureOpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	return f, nil
}

// lockHeld treats every existing lock file as held.
func lockHeld(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		return false, err
	}
	return true, nil
}
