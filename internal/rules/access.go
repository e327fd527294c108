// Package rules builds the filesystem and network access rules handed to the
// sandbox launcher and serializes them into the settings document.
package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kije/typst-mcp/internal/logger"
	"github.com/kije/typst-mcp/internal/types"
)

var log = logger.New("rules")

// sensitivePaths are denied for reading in every mode, including
// read-allow-only mode. Entries without a ~ are relative to the working
// directory of the sandboxed command.
var sensitivePaths = []string{
	"~/.ssh",
	"~/.aws",
	"~/.config/gcloud",
	"~/.config/gh",
	"~/.gnupg",
	"~/.kube",
	"~/.docker",
	".env",
	".git/config",
	"~/.netrc",
	"~/.npmrc",
	"~/.pypirc",
}

// defaultDomains are reachable from sandboxed commands (package fetching).
var defaultDomains = []string{
	"packages.typst.org",
	"*.github.com",
}

// SensitivePaths returns the always-denied read entries with ~ expanded
// against home. An empty home leaves the ~ form in place.
func SensitivePaths(home string) []string {
	n := NewNormalizer(home, "")
	out := make([]string, len(sensitivePaths))
	for i, p := range sensitivePaths {
		out[i] = n.Normalize(p)
	}
	return out
}

// DefaultDomains returns the built-in allowed network domains.
func DefaultDomains() []string {
	return slices.Clone(defaultDomains)
}

// AccessRules is the value handed to the Serializer. AllowRead is nil in
// deny-list mode and non-nil in read-allow-only mode.
type AccessRules struct {
	DenyRead       []string
	AllowRead      []string
	AllowWrite     []string
	AllowedDomains []string
}

// Mode reports whether the rules restrict reads to an allow list.
func (r AccessRules) Mode() types.ReadMode {
	if r.AllowRead != nil {
		return types.ReadModeAllowOnly
	}
	return types.ReadModeDeny
}

// Equal compares two rule sets using set semantics for every field.
func (r AccessRules) Equal(o AccessRules) bool {
	if r.Mode() != o.Mode() {
		return false
	}
	return slices.Equal(canonical(r.DenyRead), canonical(o.DenyRead)) &&
		slices.Equal(canonical(r.AllowRead), canonical(o.AllowRead)) &&
		slices.Equal(canonical(r.AllowWrite), canonical(o.AllowWrite)) &&
		slices.Equal(canonical(r.AllowedDomains), canonical(o.AllowedDomains))
}

// ReadExposed reports whether p would be readable under these rules,
// resolving relative entries against n's work directory.
func (r AccessRules) ReadExposed(p string, n *Normalizer) (bool, error) {
	deny, err := NewPathMatcher(r.DenyRead, n)
	if err != nil {
		return false, err
	}
	if deny.Match(p) {
		return false, nil
	}
	if r.AllowRead == nil {
		return true, nil
	}
	allow, err := NewPathMatcher(r.AllowRead, n)
	if err != nil {
		return false, err
	}
	return allow.Match(p), nil
}

// canonical returns a sorted, de-duplicated copy without empty entries.
func canonical(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Sources are the layers AccessRules are built from, lowest precedence
// first. Environment layers are additive only; ReadAllowOnly comes from the
// command line and switches to read-allow-only mode when non-nil.
type Sources struct {
	HomeDir       string
	WorkDir       string
	SystemTempDir string
	TempRoot      string
	// CacheDir holds the typst package cache; empty means none.
	CacheDir string

	EnvDenyRead     []string
	EnvAllowWrite   []string
	EnvAllowDomains []string

	ReadAllowOnly []string
}

// Build layers fixed defaults, environment additions and command-line flags
// into an AccessRules value.
func Build(src Sources) (AccessRules, error) {
	n := NewNormalizer(src.HomeDir, src.WorkDir)
	r := AccessRules{
		DenyRead: SensitivePaths(src.HomeDir),
	}

	if src.ReadAllowOnly != nil {
		allow := n.NormalizeAll(src.ReadAllowOnly)
		if len(allow) == 0 {
			return AccessRules{}, fmt.Errorf("read-allow-only mode requires at least one path")
		}
		r.AllowRead = canonical(allow)
		if len(src.EnvDenyRead) > 0 {
			log.WarnOnce("env-deny-read-ignored",
				"TYPST_MCP_DENY_READ is ignored in read-allow-only mode; sensitive paths stay denied")
		}
	} else if extra := n.NormalizeAll(src.EnvDenyRead); len(extra) > 0 {
		log.Info("Custom deny-read paths: %s", strings.Join(extra, ", "))
		r.DenyRead = append(r.DenyRead, extra...)
	}

	for _, p := range []string{src.WorkDir, src.SystemTempDir, src.TempRoot, src.CacheDir} {
		if p = n.Normalize(p); p != "" {
			r.AllowWrite = append(r.AllowWrite, p)
		}
	}
	if extra := n.NormalizeAll(src.EnvAllowWrite); len(extra) > 0 {
		log.Info("Custom allow-write paths: %s", strings.Join(extra, ", "))
		r.AllowWrite = append(r.AllowWrite, extra...)
	}

	r.AllowedDomains = DefaultDomains()
	for _, d := range src.EnvAllowDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if err := ValidateDomainPattern(d); err != nil {
			return AccessRules{}, fmt.Errorf("TYPST_MCP_ALLOW_DOMAINS: %w", err)
		}
		r.AllowedDomains = append(r.AllowedDomains, d)
	}

	r.DenyRead = canonical(r.DenyRead)
	r.AllowWrite = canonical(r.AllowWrite)
	r.AllowedDomains = canonical(r.AllowedDomains)

	reportShadowed(r, n)
	return r, nil
}

// reportShadowed logs allow entries that contain sensitive paths. The deny
// entries still win in the launcher; this only makes the outcome visible.
func reportShadowed(r AccessRules, n *Normalizer) {
	for _, allow := range [][]string{r.AllowRead, r.AllowWrite} {
		for _, entry := range allow {
			m, err := NewPathMatcher([]string{entry}, n)
			if err != nil {
				continue
			}
			for _, s := range r.DenyRead {
				if m.Match(n.Absolute(s)) {
					log.Debug("%s contains denied path %s; reads there stay blocked", entry, s)
				}
			}
		}
	}
}
