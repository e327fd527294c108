// Package completion provides shell tab-completion for typst-mcp.
//
// The binary completes itself: when the shell invokes it with COMP_LINE
// set, it prints the matching candidates and exits. bash, zsh and fish are
// covered by a one-time install.
package completion

import (
	"os"
	"sort"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/install"
	"github.com/posener/complete/v2/predict"
)

const binary = "typst-mcp"

// sandboxFlags are accepted by every command that launches a child.
func sandboxFlags(extra map[string]complete.Predictor) map[string]complete.Predictor {
	flags := map[string]complete.Predictor{
		"config":          predict.Files("*.yaml"),
		"strict":          predict.Nothing,
		"read-allow-only": predict.Dirs("*"),
		"disable-sandbox": predict.Nothing,
		"log-level":       predict.Set{"trace", "debug", "info", "warn", "error"},
		"no-color":        predict.Nothing,
	}
	for k, v := range extra {
		flags[k] = v
	}
	return flags
}

var command = &complete.Command{
	Sub: map[string]*complete.Command{
		"run":            {Flags: sandboxFlags(map[string]complete.Predictor{"dry-run": predict.Nothing}), Args: predict.Something},
		"check-sandbox":  {Flags: sandboxFlags(nil)},
		"print-settings": {Flags: sandboxFlags(nil)},
		"compile":        {Flags: sandboxFlags(map[string]complete.Predictor{"output": predict.Files("*.pdf"), "snippet": predict.Nothing}), Args: predict.Files("*.typ")},
		"check":          {Flags: sandboxFlags(nil), Args: predict.Files("*.typ")},
		"convert-latex":  {Flags: sandboxFlags(nil), Args: predict.Files("*.tex")},
		"copy":           {Flags: sandboxFlags(nil), Args: predict.Files("*")},
		"deps":           {},
		"cleanup":        {},
		"version":        {},
		"help":           {},
		"completion":     {Flags: map[string]complete.Predictor{"install": predict.Nothing, "uninstall": predict.Nothing}},
	},
}

// Commands returns the subcommand names known to the completer, sorted.
func Commands() []string {
	names := make([]string, 0, len(command.Sub))
	for name := range command.Sub {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run checks if the binary was invoked for shell completion. If so it
// prints completions and reports true; the caller should exit.
func Run() bool {
	if os.Getenv("COMP_LINE") != "" || os.Getenv("COMP_INSTALL") != "" || os.Getenv("COMP_UNINSTALL") != "" {
		command.Complete(binary)
		return true
	}
	return false
}

// Install sets up shell completion for the detected shells.
func Install() error {
	return install.Install(binary)
}

// Uninstall removes shell completion for the detected shells.
func Uninstall() error {
	return install.Uninstall(binary)
}

// IsInstalled reports whether shell completion is already set up.
func IsInstalled() bool {
	return install.IsInstalled(binary)
}
