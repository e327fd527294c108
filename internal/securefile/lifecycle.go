package securefile

import (
	"errors"
	"sort"
	"sync"
)

// Registry tracks live files so they can be released on shutdown. It is safe
// for concurrent use.
type Registry struct {
	mu    sync.Mutex
	files map[string]*SecureFile
}

func NewRegistry() *Registry {
	return &Registry{files: make(map[string]*SecureFile)}
}

func (r *Registry) track(sf *SecureFile) {
	r.mu.Lock()
	r.files[sf.path] = sf
	r.mu.Unlock()
}

func (r *Registry) untrack(sf *SecureFile) {
	r.mu.Lock()
	delete(r.files, sf.path)
	r.mu.Unlock()
}

// Len returns the number of live files.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

// Paths returns the live file paths, sorted.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.files))
	for p := range r.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ReleaseAll releases every tracked file and joins the errors.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	files := make([]*SecureFile, 0, len(r.files))
	for _, sf := range r.files {
		files = append(files, sf)
	}
	r.mu.Unlock()

	var errs []error
	for _, sf := range files {
		if err := sf.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
