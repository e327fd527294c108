// Package tui renders the CLI's human-facing output: status lines, the
// sandbox notices and small aligned reports. Everything degrades to plain
// text when colors are off or output is not a terminal.
package tui

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	plainMode bool
	plainOnce sync.Once
	plainMu   sync.RWMutex
)

// initPlainMode auto-detects plain mode on first call.
// Precedence: NO_COLOR > TTY detection > color profile.
func initPlainMode() {
	plainOnce.Do(func() {
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			plainMode = true
			return
		}
		// Notices go to stderr, so that is the stream that decides.
		if !term.IsTerminal(int(os.Stderr.Fd())) { //nolint:gosec // Fd() fits in int on all supported platforms
			plainMode = true
			return
		}
		if termenv.EnvColorProfile() == termenv.Ascii {
			plainMode = true
		}
	})
}

// SetPlainMode explicitly enables or disables plain mode.
// Call this early (e.g. when parsing --no-color) before any output.
func SetPlainMode(plain bool) {
	plainMu.Lock()
	defer plainMu.Unlock()
	plainMode = plain
	plainOnce.Do(func() {})
}

// IsPlainMode returns true if styling is disabled.
func IsPlainMode() bool {
	initPlainMode()
	plainMu.RLock()
	defer plainMu.RUnlock()
	return plainMode
}

// Palette. Adapts to the terminal background.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1F6F78", Dark: "#4FC3C8"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#3F7A3A", Dark: "#8CC56B"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#B5382A", Dark: "#E05A3A"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD93D"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#2C5F8A", Dark: "#7FB3E0"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold    = lipgloss.NewStyle().Bold(true)
	StyleCommand = lipgloss.NewStyle().Foreground(ColorPrimary)

	stylePrefix = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Banner boxes; the border color carries the severity.
	StyleWarnBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(ColorWarning).
			Padding(0, 1)
	StyleErrorBox = StyleWarnBox.BorderForeground(ColorError)
)

const prefix = "[typst-mcp]"

// Prefix returns the branded [typst-mcp] prefix string.
func Prefix() string {
	if IsPlainMode() {
		return prefix
	}
	return stylePrefix.Render(prefix)
}

// Separator returns a section separator with an optional title.
func Separator(title string) string {
	if IsPlainMode() {
		if title == "" {
			return "---"
		}
		return "--- " + title + " ---"
	}
	bar := StyleMuted.Render("━━━━━━━━━━━━━━━━━━━━━━━━")
	if title == "" {
		return bar
	}
	return StyleTitle.Render("▸▸ "+title+" ") + bar
}

// Hyperlink wraps text in an OSC 8 link on truecolor terminals, which in
// practice are the ones that understand OSC 8. Falls back to text.
func Hyperlink(url, text string) string {
	if url == "" || IsPlainMode() || termenv.EnvColorProfile() != termenv.TrueColor {
		return text
	}
	return termenv.Hyperlink(url, text)
}
