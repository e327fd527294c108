// Package securefile creates short-lived, single-purpose files that another
// process reads by path: unpredictable name, exclusive creation, permissions
// changed only through the open descriptor, and the strongest tamper barrier
// the platform offers applied before the path is handed out.
package securefile

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kije/typst-mcp/internal/logger"
)

var log = logger.New("securefile")

const (
	DefaultPrefix = "srt-settings-"
	DefaultSuffix = ".json"
)

// ContentFunc renders the file body. It receives the final path so the
// content can refer to the file itself.
type ContentFunc func(path string) ([]byte, error)

// Options controls Create. The zero value uses the default name pattern, the
// platform enforcer and non-strict mode.
type Options struct {
	Prefix string
	Suffix string
	// Strict turns an unavailable immutability barrier into a hard
	// ErrImmutabilityUnsupported failure instead of a warning.
	Strict   bool
	Enforcer Enforcer
	// Registry, if set, tracks the file until Release.
	Registry *Registry
}

// SecureFile is a sealed file and the handle needed to tear it down.
type SecureFile struct {
	path     string
	owner    int
	state    State
	warnings []string
	seal     *Seal
	enforcer Enforcer
	registry *Registry

	mu sync.Mutex
}

// Create validates dir, allocates a unique file in it, writes the rendered
// content, hardens it to owner-read-only and applies the platform barrier.
// On any error nothing is left on disk.
func Create(dir string, render ContentFunc, opts Options) (*SecureFile, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	enf := opts.Enforcer
	if enf == nil {
		enf = Platform()
	}

	if err := ValidateDirectory(dir); err != nil {
		return nil, err
	}

	f, path, err := allocate(dir, opts.Prefix, opts.Suffix)
	if err != nil {
		return nil, err
	}

	var seal *Seal
	done := false
	defer func() {
		if done {
			return
		}
		discard(f, seal, enf, path)
	}()

	content, err := render(path)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", path, err)
	}
	if err := harden(f, path, content); err != nil {
		return nil, err
	}

	// The enforcer owns f from here on.
	seal, err = enf.Apply(f, path)
	f = nil
	if seal == nil {
		seal = &Seal{Path: path}
	}

	sf := &SecureFile{
		path:     path,
		owner:    os.Getpid(),
		seal:     seal,
		enforcer: enf,
		registry: opts.Registry,
		warnings: append([]string(nil), seal.Warnings...),
	}

	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return nil, newError(ErrPermission, path, err)
		}
		if opts.Strict {
			return nil, newError(ErrImmutabilityUnsupported, path, err)
		}
		sf.warnings = append(sf.warnings, fmt.Sprintf(
			"tamper protection degraded to owner-read-only permissions (%v)", err))
	}
	sf.state = stateOf(seal)

	for _, w := range sf.warnings {
		log.WarnOnce(enf.Name()+":"+w, "%s", w)
	}
	if opts.Registry != nil {
		opts.Registry.track(sf)
	}
	log.Debug("Sealed %s (%s, %s)", path, sf.state, seal.Mechanism)

	done = true
	return sf, nil
}

// discard removes a half-built file. f is non-nil only before the enforcer
// took ownership of it.
func discard(f *os.File, seal *Seal, enf Enforcer, path string) {
	if f != nil {
		f.Close()
		if err := removeFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to remove %s: %v", path, err)
		}
		return
	}
	if seal != nil {
		if err := enf.Release(seal); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to release %s: %v", path, err)
		}
	}
}

// Path is the absolute path of the sealed file.
func (s *SecureFile) Path() string { return s.path }

// Owner is the pid of the process that created the file.
func (s *SecureFile) Owner() int { return s.owner }

func (s *SecureFile) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Warnings lists the degradations that occurred while sealing.
func (s *SecureFile) Warnings() []string {
	return append([]string(nil), s.warnings...)
}

// Mechanism describes the barrier in place, for diagnostics.
func (s *SecureFile) Mechanism() string { return s.seal.Mechanism }

// Release clears the barrier and deletes the file. It is safe to call more
// than once. A failure leaves the file in place for the system temp cleaner
// and is returned for logging.
func (s *SecureFile) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return nil
	}
	s.state = StateReleased
	if s.registry != nil {
		s.registry.untrack(s)
	}
	if err := s.enforcer.Release(s.seal); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release %s: %w", s.path, err)
	}
	return nil
}
