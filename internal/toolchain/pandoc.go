package toolchain

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kije/typst-mcp/internal/sandbox"
)

// Pandoc converts LaTeX to typst.
type Pandoc struct {
	runner   Runner
	tempRoot string
	timeout  time.Duration
}

func NewPandoc(r Runner, tempRoot string, timeout time.Duration) *Pandoc {
	return &Pandoc{runner: r, tempRoot: tempRoot, timeout: timeout}
}

// ConvertLaTeX converts a LaTeX snippet and returns the trimmed typst source.
// pandoc's own --sandbox flag stays on even under the OS sandbox.
func (p *Pandoc) ConvertLaTeX(ctx context.Context, latex string) (string, error) {
	if len(latex) > MaxLaTeXSize {
		return "", fmt.Errorf("LaTeX snippet too large: %d bytes (max %d)", len(latex), MaxLaTeXSize)
	}
	tex, typ := scratch(p.tempRoot, ".tex", ".typ")
	defer removeAll(tex, typ)

	if err := writeScratch(tex, latex); err != nil {
		return "", err
	}
	argv := []string{"pandoc", "--sandbox", tex, "--from=latex", "--to=typst", "--output", typ}
	if _, err := run(ctx, p.runner, argv, sandbox.RunOptions{Timeout: p.timeout}); err != nil {
		return "", err
	}
	out, err := os.ReadFile(typ)
	if err != nil {
		return "", fmt.Errorf("read converted output: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
