//go:build linux

package securefile

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// fsImmutableFL is FS_IMMUTABLE_FL from <linux/fs.h>. Setting it needs
// CAP_LINUX_IMMUTABLE.
const fsImmutableFL = 0x00000010

var platform Enforcer = lockEnforcer{}

// applyImmutable is replaced in tests.
var applyImmutable = setImmutable

// heldLocks keeps every lock descriptor open for the lifetime of the process,
// independent of whether callers keep their SecureFile around. The kernel
// drops the locks when the process exits, however it exits.
var (
	heldLocks   = make(map[string]*os.File)
	heldLocksMu sync.Mutex
)

// lockEnforcer takes an exclusive advisory lock on a duplicate of the
// descriptor and holds it. When the process is privileged enough,
// FS_IMMUTABLE_FL is layered on top.
type lockEnforcer struct{}

func (lockEnforcer) Name() string { return "flock" }

func (lockEnforcer) Apply(f *os.File, path string) (*Seal, error) {
	s := &Seal{Path: path, Mechanism: "permissions only"}
	fd := int(f.Fd()) //nolint:gosec // Fd() fits in int on all supported platforms

	dup, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0) //nolint:gosec // fd is non-negative
	if err != nil {
		f.Close()
		return s, fmt.Errorf("%w: dup: %v", ErrUnavailable, err)
	}
	held := os.NewFile(uintptr(dup), path) //nolint:gosec // dup is non-negative
	if err := unix.Flock(dup, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		held.Close()
		f.Close()
		return s, fmt.Errorf("%w: flock: %v", ErrUnavailable, err)
	}
	s.held = held
	s.Advisory = true
	s.Mechanism = "flock(LOCK_EX)"

	if err := applyImmutable(dup, true); err == nil {
		s.Immutable = true
		s.Mechanism = "flock(LOCK_EX) + FS_IMMUTABLE_FL"
	} else {
		s.Warnings = append(s.Warnings, fmt.Sprintf(
			"settings file protected only by an advisory lock held for this process's lifetime; FS_IMMUTABLE_FL not set (%v)", err))
	}

	heldLocksMu.Lock()
	heldLocks[path] = held
	heldLocksMu.Unlock()

	// The original descriptor goes only after the lock is in place.
	if err := f.Close(); err != nil {
		return s, fmt.Errorf("close %s: %w", path, err)
	}
	return s, nil
}

func (lockEnforcer) Release(s *Seal) error {
	if s.held != nil {
		if s.Immutable {
			if err := applyImmutable(int(s.held.Fd()), false); err != nil { //nolint:gosec // Fd() fits in int
				return fmt.Errorf("clear FS_IMMUTABLE_FL on %s: %w", s.Path, err)
			}
			s.Immutable = false
		}
		heldLocksMu.Lock()
		delete(heldLocks, s.Path)
		heldLocksMu.Unlock()
		// Closing the last descriptor drops the flock.
		s.held.Close()
		s.held = nil
		s.Advisory = false
	}
	return removeFile(s.Path)
}

// setImmutable toggles FS_IMMUTABLE_FL through the descriptor.
func setImmutable(fd int, on bool) error {
	flags, err := unix.IoctlGetUint32(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return err
	}
	if on {
		flags |= fsImmutableFL
	} else {
		flags &^= fsImmutableFL
	}
	return unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, int(flags))
}
