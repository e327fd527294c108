package tui

import (
	"fmt"
	"strings"
)

// Severity selects the banner frame.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// RenderBanner formats a boxed notice: a title line followed by body lines.
// Plain mode renders a framed block of text instead of a box.
func RenderBanner(sev Severity, title string, lines ...string) string {
	label := "WARNING"
	icon := IconWarning
	if sev == SeverityError {
		label = "ERROR"
		icon = IconCross
	}

	if IsPlainMode() {
		var b strings.Builder
		rule := strings.Repeat("=", 60)
		fmt.Fprintf(&b, "%s\n%s %s: %s\n", rule, prefix, label, title)
		for _, l := range lines {
			fmt.Fprintf(&b, "  %s\n", l)
		}
		b.WriteString(rule + "\n")
		return b.String()
	}

	box := StyleWarnBox
	head := StyleWarning
	if sev == SeverityError {
		box = StyleErrorBox
		head = StyleError
	}
	body := head.Bold(true).Render(icon+" "+title) + "\n"
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	return box.Render(body) + "\n"
}

// PrintBanner writes RenderBanner's output to stderr.
func PrintBanner(sev Severity, title string, lines ...string) {
	fmt.Fprint(Stderr, RenderBanner(sev, title, lines...))
}
