package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/kije/typst-mcp/internal/types"
)

const (
	srtBinaryName = "srt"
	npxBinaryName = "npx"
	// srtPackage is the npm package that provides srt.
	srtPackage = "@anthropic-ai/sandbox-runtime"

	defaultProbeTimeout = 30 * time.Second
)

// Launcher is the resolved sandbox runtime that wraps every child process.
type Launcher struct {
	Method types.SandboxMethod
	// Path is the absolute path of srt or npx; empty when not sandboxed.
	Path string
}

// Wrap returns argv prefixed with the launcher invocation. The settings path
// is passed as its own argv element; it never goes through a shell or the
// environment.
func (l Launcher) Wrap(settingsPath string, argv []string) []string {
	var prefix []string
	switch l.Method {
	case types.SandboxSRTInstalled:
		prefix = []string{l.Path, "--settings", settingsPath, "--"}
	case types.SandboxSRTNpx:
		prefix = []string{l.Path, "-y", srtPackage, "--settings", settingsPath, "--"}
	default:
		return append([]string(nil), argv...)
	}
	out := make([]string, 0, len(prefix)+len(argv))
	out = append(out, prefix...)
	return append(out, argv...)
}

// DetectOptions controls launcher detection.
type DetectOptions struct {
	// Disabled short-circuits detection (--disable-sandbox).
	Disabled bool
	// ProbeTimeout bounds the npx probe, which may download srt on first use.
	ProbeTimeout time.Duration

	// lookPath and probe are replaced in tests.
	lookPath func(string) (string, error)
	probe    func(ctx context.Context, name string, args ...string) error
}

func runProbe(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) // nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command -- name comes from exec.LookPath
	cmd.Env = sanitizedEnv(nil)
	out, err := cmd.CombinedOutput()
	if err != nil && len(out) > 0 {
		return fmt.Errorf("%w: %s", err, lastLine(out))
	}
	return err
}

func lastLine(out []byte) string {
	w := &lastLineWriter{dest: io.Discard}
	_, _ = w.Write(out)
	return string(w.LastLine())
}

// Detect picks the launcher: an srt binary on PATH whose file passes
// verifyLauncherBinary, else srt through npx if a probe run succeeds. When
// neither works it returns a SandboxNone launcher and an
// ErrSandboxUnavailable error; whether that is fatal is the caller's call.
func Detect(ctx context.Context, opts DetectOptions) (Launcher, error) {
	if opts.Disabled {
		return Launcher{Method: types.SandboxDisabled}, nil
	}
	lookPath := opts.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	probe := opts.probe
	if probe == nil {
		probe = runProbe
	}
	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}

	var reasons []error

	if path, err := lookPath(srtBinaryName); err != nil {
		reasons = append(reasons, errors.New("srt not on PATH"))
	} else if verr := verifyLauncherBinary(path); verr != nil {
		log.Warn("Ignoring %s: %v", path, verr)
		reasons = append(reasons, fmt.Errorf("srt at %s rejected: %w", path, verr))
	} else {
		log.Info("Sandbox launcher: %s", path)
		return Launcher{Method: types.SandboxSRTInstalled, Path: path}, nil
	}

	if path, err := lookPath(npxBinaryName); err == nil {
		log.Debug("Probing %s via %s (timeout %s)", srtPackage, path, timeout)
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := probe(pctx, path, "-y", srtPackage, "--version")
		cancel()
		if err == nil {
			log.Info("Sandbox launcher: %s %s", path, srtPackage)
			return Launcher{Method: types.SandboxSRTNpx, Path: path}, nil
		}
		reasons = append(reasons, fmt.Errorf("npx probe failed: %w", err))
	} else {
		reasons = append(reasons, errors.New("npx not on PATH"))
	}

	return Launcher{Method: types.SandboxNone}, &Error{
		Code:    ErrSandboxUnavailable,
		Message: "no sandbox launcher found",
		Err:     errors.Join(reasons...),
	}
}

// InstallHints lists ways to get a launcher, for the unavailable banner.
func InstallHints() []string {
	return []string{
		"Install Node.js (npx downloads the sandbox runtime on first use): https://nodejs.org/",
		"Or install the runtime globally: npm install -g " + srtPackage,
	}
}
