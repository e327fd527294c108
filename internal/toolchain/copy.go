package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/kije/typst-mcp/internal/sandbox"
)

// goos is replaced in tests.
var goos = runtime.GOOS

// SecureCopy copies src to dst by running the OS copy command under r, so
// the destination is checked by the sandbox policy rather than by path
// validation here. On Windows `cmd /c copy` is tried first with `cp` (Git
// Bash, WSL) as the fallback.
func SecureCopy(ctx context.Context, r Runner, src, dst string, timeout time.Duration) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source file: %w", err)
	}
	opts := sandbox.RunOptions{Timeout: timeout}

	var err error
	if goos == "windows" {
		_, err = run(ctx, r, []string{"cmd", "/c", "copy", "/Y", toBackslash(src), toBackslash(dst)}, opts)
		if err != nil {
			log.Debug("copy failed (%v), falling back to cp", err)
			_, err = run(ctx, r, []string{"cp", src, dst}, opts)
		}
	} else {
		_, err = run(ctx, r, []string{"cp", src, dst}, opts)
	}
	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return fmt.Errorf("copy to %s denied or failed: %w", dst, err)
		}
		return err
	}

	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("copy reported success but %s is missing: %w", dst, err)
	}
	return nil
}

func toBackslash(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}
