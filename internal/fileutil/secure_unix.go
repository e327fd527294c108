//go:build !windows

package fileutil

import "os"

// SecureWriteFile writes data to a file with owner-only permissions (0600).
// An existing file keeps its mode under os.WriteFile, so the mode is reset
// explicitly afterwards.
func SecureWriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// SecureMkdirAll creates a directory tree with owner-only permissions (0700).
// The leaf is chmod-ed as well in case it already existed.
func SecureMkdirAll(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}
	return os.Chmod(path, 0o700)
}

// SecureMkdirTemp creates a new temporary directory with owner-only
// permissions (0700).
func SecureMkdirTemp(dir, pattern string) (string, error) {
	return os.MkdirTemp(dir, pattern)
}

// SecureOpenFile opens a file with owner-only permissions (0600).
func SecureOpenFile(path string, flag int) (*os.File, error) {
	return os.OpenFile(path, flag, 0o600)
}
