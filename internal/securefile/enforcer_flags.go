//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package securefile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ufImmutable is the owner-settable immutable flag (UF_IMMUTABLE in <sys/stat.h>).
const ufImmutable = 0x00000002

var platform Enforcer = flagEnforcer{}

// flagEnforcer sets UF_IMMUTABLE on the descriptor before it is closed, so
// there is no moment where the closed file is writable or deletable.
type flagEnforcer struct{}

func (flagEnforcer) Name() string { return "chflags" }

func (flagEnforcer) Apply(f *os.File, path string) (*Seal, error) {
	s := &Seal{Path: path}
	fderr := unix.Fchflags(int(f.Fd()), ufImmutable) //nolint:gosec // Fd() fits in int on all supported platforms
	if err := f.Close(); err != nil {
		s.Immutable = fderr == nil
		return s, fmt.Errorf("close %s: %w", path, err)
	}
	if fderr == nil {
		s.Immutable = true
		s.Mechanism = "fchflags(UF_IMMUTABLE)"
		return s, nil
	}

	// Path-based fallback. Between the close above and this call the file is
	// protected only by its 0400 mode.
	if err := unix.Chflags(path, ufImmutable); err != nil {
		s.Mechanism = "permissions only"
		return s, fmt.Errorf("%w: fchflags: %v; chflags: %v", ErrUnavailable, fderr, err)
	}
	s.Immutable = true
	s.Mechanism = "chflags(UF_IMMUTABLE)"
	s.Warnings = append(s.Warnings, fmt.Sprintf(
		"fchflags failed (%v); immutable flag applied by path after close", fderr))
	return s, nil
}

func (flagEnforcer) Release(s *Seal) error {
	if s.Immutable {
		if err := unix.Chflags(s.Path, 0); err != nil {
			return fmt.Errorf("clear immutable flag on %s: %w", s.Path, err)
		}
		s.Immutable = false
	}
	return removeFile(s.Path)
}
