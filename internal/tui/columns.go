package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// AlignColumns renders [left, right] rows with the left column padded to
// the widest entry. indent prefixes every line; gap separates the columns.
func AlignColumns(rows [][2]string, indent string, gap int, styleLeft, styleRight lipgloss.Style) string {
	if len(rows) == 0 {
		return ""
	}
	if IsPlainMode() {
		styleLeft, styleRight = lipgloss.NewStyle(), lipgloss.NewStyle()
	}

	// Visual width, not byte length.
	maxWidth := 0
	for _, row := range rows {
		maxWidth = max(maxWidth, lipgloss.Width(row[0]))
	}

	gapStr := strings.Repeat(" ", gap)
	var sb strings.Builder
	for _, row := range rows {
		sb.WriteString(indent)
		sb.WriteString(styleLeft.Render(row[0]))
		sb.WriteString(strings.Repeat(" ", maxWidth-lipgloss.Width(row[0])))
		sb.WriteString(gapStr)
		sb.WriteString(styleRight.Render(row[1]))
		sb.WriteByte('\n')
	}
	return sb.String()
}
