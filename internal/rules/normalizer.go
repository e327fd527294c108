package rules

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalizer cleans user-supplied rule entries before they are layered into
// AccessRules. Relative entries stay relative: the launcher resolves them
// against the working directory of the sandboxed command.
type Normalizer struct {
	homeDir string
	workDir string
}

// NewNormalizer creates a Normalizer that expands ~ against homeDir and
// resolves relative paths against workDir when an absolute form is needed.
func NewNormalizer(homeDir, workDir string) *Normalizer {
	return &Normalizer{homeDir: homeDir, workDir: workDir}
}

// Normalize normalizes a single rule entry.
//  1. Trim surrounding whitespace and strip NUL bytes
//  2. NFC-normalize so composed and decomposed spellings compare equal
//  3. Expand a leading ~ to the home directory
//  4. Clean the path, keeping it relative if it was relative
func (n *Normalizer) Normalize(p string) string {
	p = strings.TrimSpace(p)
	// C-level syscalls truncate at \x00; "a\x00b" must not survive as an entry.
	p = strings.ReplaceAll(p, "\x00", "")
	if p == "" {
		return ""
	}
	p = strings.ToValidUTF8(p, "\uFFFD")
	p = norm.NFC.String(p)
	p = n.expandTilde(p)
	return filepath.Clean(p)
}

// NormalizeAll normalizes entries and drops the ones that end up empty.
func (n *Normalizer) NormalizeAll(paths []string) []string {
	if paths == nil {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if np := n.Normalize(p); np != "" {
			out = append(out, np)
		}
	}
	return out
}

// Absolute returns the normalized entry resolved against the work directory.
func (n *Normalizer) Absolute(p string) string {
	p = n.Normalize(p)
	if p == "" || filepath.IsAbs(p) || n.workDir == "" {
		return p
	}
	return filepath.Join(n.workDir, p)
}

// expandTilde expands ~ at the beginning of a path to the home directory.
// ~user forms are left untouched.
func (n *Normalizer) expandTilde(p string) string {
	if n.homeDir == "" {
		return p
	}
	if p == "~" {
		return n.homeDir
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		return filepath.Join(n.homeDir, p[2:])
	}
	return p
}

// HomeDir returns the home directory used by this normalizer.
func (n *Normalizer) HomeDir() string {
	return n.homeDir
}

// WorkDir returns the working directory used by this normalizer.
func (n *Normalizer) WorkDir() string {
	return n.workDir
}
