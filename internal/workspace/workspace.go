// Package workspace owns the per-process directories typst-mcp works in: a
// private temp root that holds settings files and intermediate output, and
// the shared cache directory.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kije/typst-mcp/internal/fileutil"
	"github.com/kije/typst-mcp/internal/logger"
	"github.com/kije/typst-mcp/internal/securefile"
)

var log = logger.New("workspace")

const (
	rootPrefix   = "typst-mcp-"
	lockFileName = ".lock"

	// staleAge is how old an unlocked root without a lock file must be before
	// CleanupStale removes it. A younger one may still be starting up.
	staleAge = 10 * time.Minute
)

// Options selects the directories. Empty fields use the defaults.
type Options struct {
	// TempDir is an explicit temp root. It is created if missing and never
	// removed by Close.
	TempDir string
	// Base is where a fresh temp root is created when TempDir is empty
	// (default: os.TempDir()).
	Base     string
	CacheDir string
}

// Workspace is an open set of working directories.
type Workspace struct {
	tempRoot string
	cacheDir string
	owned    bool
	lock     *os.File
}

// Open prepares the temp root and cache directory. The temp root must pass
// securefile.ValidateDirectory since settings files are created in it.
func Open(opts Options) (*Workspace, error) {
	w := &Workspace{cacheDir: opts.CacheDir}

	if opts.TempDir != "" {
		// An existing directory is used as is and must pass validation on
		// its own; its mode is never changed.
		switch err := os.Mkdir(opts.TempDir, 0o700); {
		case err == nil:
			// Ours: apply the owner-only DACL on Windows.
			if err := fileutil.SecureMkdirAll(opts.TempDir); err != nil {
				return nil, fmt.Errorf("restrict temp dir %s: %w", opts.TempDir, err)
			}
		case !errors.Is(err, os.ErrExist):
			return nil, fmt.Errorf("create temp dir %s: %w", opts.TempDir, err)
		}
		w.tempRoot = opts.TempDir
	} else {
		base := opts.Base
		if base == "" {
			base = os.TempDir()
		}
		dir, err := fileutil.SecureMkdirTemp(base, rootPrefix)
		if err != nil {
			return nil, fmt.Errorf("create temp root: %w", err)
		}
		w.tempRoot = dir
		w.owned = true
	}

	abs, err := filepath.Abs(w.tempRoot)
	if err != nil {
		w.discard()
		return nil, err
	}
	w.tempRoot = abs

	if err := securefile.ValidateDirectory(w.tempRoot); err != nil {
		w.discard()
		return nil, err
	}

	lock, err := lockRoot(filepath.Join(w.tempRoot, lockFileName))
	if err != nil {
		w.discard()
		return nil, err
	}
	w.lock = lock

	if w.cacheDir != "" {
		if err := fileutil.SecureMkdirAll(w.cacheDir); err != nil {
			log.Warn("Cannot create cache dir %s: %v", w.cacheDir, err)
		}
	}

	log.Debug("Temp root %s (owned=%v)", w.tempRoot, w.owned)
	return w, nil
}

// TempRoot is the absolute path of the private temp root.
func (w *Workspace) TempRoot() string { return w.tempRoot }

// CacheDir is the cache directory, possibly empty.
func (w *Workspace) CacheDir() string { return w.cacheDir }

// Close drops the lock and removes the temp root if Open created it. Live
// settings files must be released first.
func (w *Workspace) Close() error {
	if w.lock != nil {
		w.lock.Close()
		w.lock = nil
	}
	lockPath := filepath.Join(w.tempRoot, lockFileName)
	if !w.owned {
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	if err := os.RemoveAll(w.tempRoot); err != nil {
		return fmt.Errorf("remove temp root %s: %w", w.tempRoot, err)
	}
	return nil
}

func (w *Workspace) discard() {
	if w.owned {
		_ = os.RemoveAll(w.tempRoot)
	}
}

// readOwner returns the pid recorded in a root's lock file.
func readOwner(lockPath string) (int, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid lock file content: %w", err)
	}
	if pid < 1 || pid > 4194304 {
		return 0, fmt.Errorf("invalid PID value: %d", pid)
	}
	return pid, nil
}

// CleanupStale removes temp roots under base left behind by processes that
// exited without cleaning up. A root whose lock is still held is in use and
// is skipped. It returns the removed paths.
func CleanupStale(base string) ([]string, error) {
	if base == "" {
		base = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(base, rootPrefix+"*"))
	if err != nil {
		return nil, err
	}

	var removed []string
	var errs []error
	for _, dir := range matches {
		info, err := os.Lstat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		lockPath := filepath.Join(dir, lockFileName)
		stale, err := isStale(lockPath, info.ModTime())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dir, err))
			continue
		}
		if !stale {
			if pid, err := readOwner(lockPath); err == nil {
				log.Debug("Skipping %s (in use by pid %d)", dir, pid)
			}
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			// Settings files sealed with an immutable flag or ACL refuse deletion.
			errs = append(errs, fmt.Errorf("remove %s: %w", dir, err))
			continue
		}
		removed = append(removed, dir)
	}
	return removed, errors.Join(errs...)
}

func isStale(lockPath string, modTime time.Time) (bool, error) {
	held, err := lockHeld(lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return time.Since(modTime) > staleAge, nil
	}
	if err != nil {
		return false, err
	}
	return !held, nil
}
