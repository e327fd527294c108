// Package toolchain drives the external typst and pandoc binaries through
// the sandbox.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kije/typst-mcp/internal/fileutil"
	"github.com/kije/typst-mcp/internal/logger"
	"github.com/kije/typst-mcp/internal/sandbox"
)

var log = logger.New("toolchain")

const (
	// MaxSnippetSize bounds typst source accepted from callers.
	MaxSnippetSize = 100_000
	// MaxLaTeXSize is lower since pandoc is slow on large inputs.
	MaxLaTeXSize = 50_000
)

// Runner runs argv to completion. *sandbox.Sandbox implements it.
type Runner interface {
	Run(ctx context.Context, argv []string, opts sandbox.RunOptions) (*sandbox.Result, error)
}

// ToolError is a tool that ran and exited non-zero.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := e.Stderr
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("%s failed (exit %d): %s", e.Tool, e.ExitCode, msg)
}

// run executes argv and turns a non-zero exit into a *ToolError.
func run(ctx context.Context, r Runner, argv []string, opts sandbox.RunOptions) (*sandbox.Result, error) {
	res, err := r.Run(ctx, argv, opts)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		stderr := strings.TrimSpace(string(res.Stderr))
		if stderr == "" {
			stderr = res.LastStderrLine
		}
		return res, &ToolError{Tool: argv[0], ExitCode: res.ExitCode, Stderr: stderr}
	}
	return res, nil
}

// scratch returns a pair of unique paths in dir sharing one id.
func scratch(dir, inExt, outExt string) (string, string) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return filepath.Join(dir, "main_"+id+inExt), filepath.Join(dir, "output_"+id+outExt)
}

func writeScratch(path, content string) error {
	if err := fileutil.SecureWriteFile(path, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func removeAll(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Debug("Leaving %s: %v", p, err)
		}
	}
}

// Tool is an external binary the server depends on.
type Tool struct {
	Name string
	Info string
	URL  string
}

// RequiredTools are checked at startup.
var RequiredTools = []Tool{
	{Name: "typst", Info: "Typst CLI", URL: "https://github.com/typst/typst"},
	{Name: "pandoc", Info: "Pandoc", URL: "https://pandoc.org/installing.html"},
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// CheckDependencies returns the required tools missing from PATH.
func CheckDependencies() []Tool {
	var missing []Tool
	for _, t := range RequiredTools {
		if _, err := lookPath(t.Name); err != nil {
			missing = append(missing, t)
		}
	}
	return missing
}

// DependencyHints lists install commands per platform.
func DependencyHints() []string {
	return []string{
		"macOS:   brew install typst pandoc",
		"Linux:   apt install typst pandoc  # or your package manager",
		"Windows: see the installation links above",
	}
}
