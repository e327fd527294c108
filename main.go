package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kije/typst-mcp/internal/completion"
	"github.com/kije/typst-mcp/internal/tui"
)

// Version is set at build time via ldflags: -X main.Version=x.y.z
var Version = "0.1.0"

type command func(ctx context.Context, args []string) error

// commands maps each subcommand to its handler. Every name the shell
// completer offers must be present here.
var commands = map[string]command{
	"run":            runRun,
	"check-sandbox":  runCheckSandbox,
	"print-settings": runPrintSettings,
	"compile":        runCompile,
	"check":          runCheck,
	"convert-latex":  runConvertLaTeX,
	"copy":           runCopy,
	"deps":           runDeps,
	"cleanup":        runCleanup,
	"completion":     runCompletion,
	"version":        runVersion,
	"help":           runHelp,
}

func main() {
	if completion.Run() {
		return
	}

	if len(os.Args) < 2 {
		printUsage()
		return
	}
	name := os.Args[1]
	switch name {
	case "-h", "--help":
		name = "help"
	case "-v", "--version":
		name = "version"
	}
	cmd, ok := commands[name]
	if !ok {
		tui.PrintError(fmt.Sprintf("unknown command %q (see 'typst-mcp help')", name))
		os.Exit(2)
	}

	// Cancelling the context kills running children; handlers then return
	// and their deferred cleanup releases settings files and the temp root.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd(ctx, os.Args[2:])
	stop()
	os.Exit(exitCode(err))
}

// exitError carries a child's exit status out of a handler.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitCode reports err on stderr as a single line and returns the process
// exit status for it.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	tui.PrintError(oneLine(err))
	return 1
}

// oneLine flattens joined and multi-line errors.
func oneLine(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "; ")
}

func runVersion(context.Context, []string) error {
	fmt.Printf("typst-mcp version %s\n", Version)
	return nil
}

func runHelp(context.Context, []string) error {
	printUsage()
	return nil
}

func printUsage() {
	fmt.Println(`typst-mcp - sandboxed typst and pandoc toolchain

Usage:
  typst-mcp run [flags] -- <cmd> [args...]   Run a command under the sandbox
  typst-mcp check-sandbox [flags]            Report launcher, enforcer and rules
  typst-mcp print-settings [flags]           Print the sandbox settings document
  typst-mcp compile [flags] <file.typ>       Compile a typst file (--output file.pdf)
  typst-mcp compile --snippet -o out.pdf <file|->
                                             Compile loose typst source to out.pdf
  typst-mcp check [flags] <file.typ|->       Report compile errors without writing a PDF
  typst-mcp convert-latex [flags] <file|->   Convert LaTeX to typst
  typst-mcp copy [flags] <src> <dst>         Copy a file through the sandbox

  typst-mcp deps                             Check for typst and pandoc
  typst-mcp cleanup                          Remove temp roots left by dead processes
  typst-mcp completion [--install|--uninstall]
  typst-mcp version
  typst-mcp help

Sandbox Flags:
  --config string             Config file (default ~/.config/typst-mcp/config.yaml)
  --strict                    Fail instead of degrading when the sandbox or
                              immutability protection is unavailable
  --read-allow-only paths     Only allow reads under these comma-separated paths
  --disable-sandbox           Run tools without the sandbox (not recommended)
  --log-level string          trace, debug, info, warn, error
  --no-color                  Disable colors

Environment:
  TYPST_MCP_DENY_READ, TYPST_MCP_ALLOW_WRITE, TYPST_MCP_ALLOW_DOMAINS
                              Comma-separated additions to the default rules
  TYPST_MCP_TEMP_DIR, TYPST_MCP_CACHE_DIR
  TYPST_MCP_PANDOC_TIMEOUT, TYPST_MCP_TYPST_COMPILE_TIMEOUT,
  TYPST_MCP_COPY_TIMEOUT, TYPST_MCP_LAUNCHER_PROBE_TIMEOUT (seconds)
  TYPST_MCP_VERBOSE_LOGGING`)
}
