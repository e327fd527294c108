package rules

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// PathMatcher reports whether a path falls under any of a set of rule
// entries. An entry covers itself and everything beneath it; entries that
// contain glob syntax are matched as patterns.
type PathMatcher struct {
	globs []glob.Glob
}

// NewPathMatcher compiles entries after resolving them with n.
// Returns an error if any glob entry fails to compile.
func NewPathMatcher(entries []string, n *Normalizer) (*PathMatcher, error) {
	m := &PathMatcher{globs: make([]glob.Glob, 0, 2*len(entries))}
	for _, e := range entries {
		abs := filepath.ToSlash(n.Absolute(e))
		if abs == "" {
			continue
		}
		var patterns []string
		if containsGlob(abs) {
			patterns = []string{abs, strings.TrimSuffix(abs, "/") + "/**"}
		} else {
			quoted := glob.QuoteMeta(abs)
			patterns = []string{quoted, strings.TrimSuffix(quoted, "/") + "/**"}
		}
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, fmt.Errorf("invalid path pattern %q: %w", e, err)
			}
			m.globs = append(m.globs, g)
		}
	}
	return m, nil
}

// Match checks if an absolute path is covered by any entry.
func (m *PathMatcher) Match(p string) bool {
	p = filepath.ToSlash(filepath.Clean(p))
	for _, g := range m.globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// containsGlob returns true if s contains glob metacharacters.
func containsGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// DomainMatcher matches host names against allowed-domain patterns.
// A pattern is either an exact host ("packages.typst.org") or a wildcard
// subdomain pattern ("*.github.com") that matches any depth of subdomain but
// not the bare parent domain.
type DomainMatcher struct {
	globs []glob.Glob
}

// NewDomainMatcher validates and compiles domain patterns.
func NewDomainMatcher(patterns []string) (*DomainMatcher, error) {
	m := &DomainMatcher{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		if err := ValidateDomainPattern(p); err != nil {
			return nil, err
		}
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid domain pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether host is allowed by any pattern.
func (m *DomainMatcher) Match(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, g := range m.globs {
		if g.Match(host) {
			return true
		}
	}
	return false
}

// ValidateDomainPattern checks that p is a host name, optionally prefixed
// with "*." and containing no other wildcard.
func ValidateDomainPattern(p string) error {
	host := strings.TrimPrefix(p, "*.")
	switch {
	case p == "":
		return fmt.Errorf("empty domain pattern")
	case strings.ContainsAny(host, "*?[]{}/\\:@ \t"):
		return fmt.Errorf("invalid domain pattern %q: only a leading \"*.\" wildcard is allowed", p)
	case !strings.Contains(host, ".") && host != "localhost":
		return fmt.Errorf("invalid domain pattern %q: expected a fully qualified host", p)
	case strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.Contains(host, ".."):
		return fmt.Errorf("invalid domain pattern %q: empty label", p)
	}
	return nil
}
