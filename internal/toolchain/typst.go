package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kije/typst-mcp/internal/sandbox"
)

// Typst compiles documents with the typst CLI.
type Typst struct {
	runner   Runner
	tempRoot string
	timeout  time.Duration
	// copyTimeout bounds the sandboxed copy in CompileTo.
	copyTimeout time.Duration
	env         []string
}

func NewTypst(r Runner, tempRoot string, timeout, copyTimeout time.Duration) *Typst {
	return &Typst{runner: r, tempRoot: tempRoot, timeout: timeout, copyTimeout: copyTimeout}
}

// WithPackageCache points typst's package cache at dir/packages. dir must
// be writable under the sandbox rules.
func (t *Typst) WithPackageCache(dir string) *Typst {
	if dir != "" {
		t.env = append(t.env, "TYPST_PACKAGE_CACHE_PATH="+filepath.Join(dir, "packages"))
	}
	return t
}

// Compile runs `typst compile src out`. Paths are passed as separate argv
// elements.
func (t *Typst) Compile(ctx context.Context, src, out string) error {
	argv := []string{"typst", "compile", src}
	if out != "" {
		argv = append(argv, out)
	}
	_, err := run(ctx, t.runner, argv, sandbox.RunOptions{Timeout: t.timeout, Dir: filepath.Dir(src), Env: t.env})
	return err
}

// CompileSnippet compiles typst source to PDF and returns the bytes. The
// scratch files live in the temp root and are removed afterwards.
func (t *Typst) CompileSnippet(ctx context.Context, snippet string) ([]byte, error) {
	if len(snippet) > MaxSnippetSize {
		return nil, fmt.Errorf("typst snippet too large: %d bytes (max %d)", len(snippet), MaxSnippetSize)
	}
	src, out := scratch(t.tempRoot, ".typ", ".pdf")
	defer removeAll(src, out)

	if err := writeScratch(src, snippet); err != nil {
		return nil, err
	}
	if err := t.Compile(ctx, src, out); err != nil {
		return nil, err
	}
	pdf, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read compiled PDF: %w", err)
	}
	log.Debug("Compiled snippet (%d bytes) to %d bytes of PDF", len(snippet), len(pdf))
	return pdf, nil
}

// Check reports whether snippet compiles. A compile failure is returned as
// a *ToolError whose Stderr carries the diagnostics.
func (t *Typst) Check(ctx context.Context, snippet string) error {
	_, err := t.CompileSnippet(ctx, snippet)
	return err
}

// CompileTo compiles snippet and copies the PDF to dst through the sandbox,
// so the write is subject to the same policy as the compiler.
func (t *Typst) CompileTo(ctx context.Context, snippet, dst string) error {
	if len(snippet) > MaxSnippetSize {
		return fmt.Errorf("typst snippet too large: %d bytes (max %d)", len(snippet), MaxSnippetSize)
	}
	src, out := scratch(t.tempRoot, ".typ", ".pdf")
	defer removeAll(src, out)

	if err := writeScratch(src, snippet); err != nil {
		return err
	}
	if err := t.Compile(ctx, src, out); err != nil {
		return err
	}
	if err := SecureCopy(ctx, t.runner, out, dst, t.copyTimeout); err != nil {
		return err
	}
	if err := os.Chmod(dst, 0o600); err != nil {
		log.Warn("Could not restrict PDF permissions on %s: %v", dst, err)
	}
	return nil
}
