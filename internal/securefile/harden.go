package securefile

import (
	"errors"
	"fmt"
	"os"
)

// harden writes content through f and leaves the file owner-read-only. Every
// permission change goes through the descriptor. f stays open.
func harden(f *os.File, path string, content []byte) error {
	if err := fchmod(f, 0o600); err != nil {
		return newError(ErrPermission, path, fmt.Errorf("set 0600: %w", err))
	}
	if _, err := f.Write(content); err != nil {
		return newError(ErrPermission, path, fmt.Errorf("write: %w", err))
	}
	if err := f.Sync(); err != nil {
		return newError(ErrPermission, path, fmt.Errorf("sync: %w", err))
	}
	info, err := f.Stat()
	if err != nil {
		return newError(ErrPermission, path, fmt.Errorf("stat: %w", err))
	}
	if info.Size() != int64(len(content)) {
		return newError(ErrPermission, path,
			fmt.Errorf("short write: %d of %d bytes on disk", info.Size(), len(content)))
	}
	if err := fchmod(f, 0o400); err != nil {
		return newError(ErrPermission, path, fmt.Errorf("set 0400: %w", err))
	}
	info, err = f.Stat()
	if err != nil {
		return newError(ErrPermission, path, fmt.Errorf("stat: %w", err))
	}
	if !info.Mode().IsRegular() {
		return newError(ErrPermission, path, errors.New("not a regular file"))
	}
	if err := verifyReadOnly(info); err != nil {
		return newError(ErrPermission, path, err)
	}
	return nil
}
