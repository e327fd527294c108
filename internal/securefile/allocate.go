package securefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const maxAllocAttempts = 8

// newSuffix produces the random part of the file name. Replaced in tests to
// force collisions.
var newSuffix = func() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// allocate creates a new file named prefix+<random>+suffix in dir with
// exclusive-create semantics, retrying on name collisions. The caller owns the
// returned descriptor.
func allocate(dir, prefix, suffix string) (*os.File, string, error) {
	var lastErr error
	for range maxAllocAttempts {
		rnd, err := newSuffix()
		if err != nil {
			return nil, "", newError(ErrAllocation, dir, fmt.Errorf("random name: %w", err))
		}
		path := filepath.Join(dir, prefix+rnd+suffix)
		// 0600 at creation; the umask can only narrow it.
		f, err := os.OpenFile(path, createFlags, 0o600)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", newError(ErrAllocation, path, err)
		}
		lastErr = err
		log.Debug("Name collision on %s, retrying", filepath.Base(path))
	}
	return nil, "", newError(ErrAllocation, dir,
		fmt.Errorf("no unique name after %d attempts: %w", maxAllocAttempts, lastErr))
}
