package securefile

import (
	"errors"
	"fmt"
	"os"
)

// ErrUnavailable is wrapped by Enforcer.Apply when the platform barrier could
// not be applied. The Seal returned alongside it is still usable: the file is
// closed and owner-read-only, just not protected beyond that.
var ErrUnavailable = errors.New("immutability primitive unavailable")

// Enforcer applies the strongest tamper and deletion barrier the platform
// offers to a hardened settings file. Exactly one implementation is compiled
// in per target; see Platform.
type Enforcer interface {
	// Name identifies the mechanism in logs.
	Name() string
	// Apply takes ownership of f and closes it on every path. Descriptor-level
	// protection happens before the close.
	Apply(f *os.File, path string) (*Seal, error)
	// Release clears the barrier and deletes the file.
	Release(s *Seal) error
}

// Seal records what an Enforcer achieved for one file.
type Seal struct {
	Path string
	// Immutable is set when an OS-enforced barrier (flag or ACL) is in place.
	Immutable bool
	// Advisory is set when a held advisory lock guards the file.
	Advisory  bool
	Mechanism string
	Warnings  []string

	held *os.File
}

// Platform returns the enforcer compiled in for the running OS.
func Platform() Enforcer {
	return platform
}

// Unsupported returns an Enforcer that seals nothing beyond the hardened
// permissions and always reports ErrUnavailable.
func Unsupported(reason string) Enforcer {
	return unsupported{reason: reason}
}

type unsupported struct {
	reason string
}

func (u unsupported) Name() string { return "none" }

func (u unsupported) Apply(f *os.File, path string) (*Seal, error) {
	s := &Seal{Path: path, Mechanism: "permissions only"}
	if err := f.Close(); err != nil {
		return s, fmt.Errorf("close %s: %w", path, err)
	}
	return s, fmt.Errorf("%w: %s", ErrUnavailable, u.reason)
}

func (u unsupported) Release(s *Seal) error {
	return removeFile(s.Path)
}
