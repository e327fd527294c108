package tui

import (
	"fmt"
	"io"
	"os"
)

// Stdout and Stderr are where the Print helpers write. Tests swap them.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// PrintSuccess prints a styled success message with the [typst-mcp] prefix.
func PrintSuccess(msg string) {
	if IsPlainMode() {
		fmt.Fprintf(Stdout, "%s OK: %s\n", prefix, msg)
		return
	}
	fmt.Fprintf(Stdout, "%s %s %s\n", Prefix(), StyleSuccess.Render(IconCheck), msg)
}

// PrintError prints a styled error message with the [typst-mcp] prefix.
func PrintError(msg string) {
	if IsPlainMode() {
		fmt.Fprintf(Stderr, "%s ERROR: %s\n", prefix, msg)
		return
	}
	fmt.Fprintf(Stderr, "%s %s %s\n", Prefix(), StyleError.Render(IconCross), msg)
}

// PrintWarning prints a styled warning to stderr, since stdout may carry a
// child's output.
func PrintWarning(msg string) {
	if IsPlainMode() {
		fmt.Fprintf(Stderr, "%s WARNING: %s\n", prefix, msg)
		return
	}
	fmt.Fprintf(Stderr, "%s %s %s\n", Prefix(), StyleWarning.Render(IconWarning), msg)
}

// PrintInfo prints a styled info message with the [typst-mcp] prefix.
func PrintInfo(msg string) {
	if IsPlainMode() {
		fmt.Fprintf(Stdout, "%s %s\n", prefix, msg)
		return
	}
	fmt.Fprintf(Stdout, "%s %s %s\n", Prefix(), StyleInfo.Render(IconInfo), msg)
}
