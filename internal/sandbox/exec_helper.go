package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// RunOptions controls a single Run.
type RunOptions struct {
	Dir   string
	Stdin io.Reader
	// Stdout and Stderr stream output when set; otherwise it is captured
	// into the Result.
	Stdout io.Writer
	Stderr io.Writer
	// Timeout bounds the whole run including launcher startup. Zero means
	// only ctx applies.
	Timeout time.Duration
	// Env adds KEY=VALUE entries to the sanitized environment.
	Env []string
}

// Result describes a finished child process.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	// LastStderrLine is the final line the child wrote to stderr, useful as a
	// one-line failure summary.
	LastStderrLine string
	Duration       time.Duration
}

// Run executes argv under the sandbox and waits for it. A non-zero exit code
// is reported in the Result, not as an error. The settings file is released
// once the child has exited.
func (s *Sandbox) Run(ctx context.Context, argv []string, opts RunOptions) (*Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd, err := s.Command(ctx, argv, opts.Env...)
	if err != nil {
		return nil, err
	}
	defer cmd.Release()

	var stdout, stderr bytes.Buffer
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = &stdout
	}
	errDest := opts.Stderr
	if errDest == nil {
		errDest = &stderr
	}
	// Tee stderr so the last line is available without buffering streamed output.
	stderrTee := &lastLineWriter{dest: errDest}
	cmd.Stderr = stderrTee

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, &Error{Code: ErrCommandNotFound, Message: cmd.Path, Err: err}
		}
		return nil, &Error{Code: ErrExecFailed, Message: "start " + cmd.Path, Err: err}
	}
	err = cmd.Wait()

	res := &Result{
		ExitCode:       0,
		Stdout:         stdout.Bytes(),
		Stderr:         stderr.Bytes(),
		LastStderrLine: string(bytes.TrimSpace(stderrTee.LastLine())),
		Duration:       time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return res, &Error{Code: ErrTimeout, Message: fmt.Sprintf("%s did not finish within %s", argv[0], opts.Timeout), Err: ctxErr}
		}
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, &Error{Code: ErrExecFailed, Message: argv[0], Err: err}
	}
	return res, nil
}

// lastLineWriter writes all data to dest while tracking the last complete line.
type lastLineWriter struct {
	dest     io.Writer
	mu       sync.Mutex
	lastLine []byte
	partial  []byte // incomplete line (no trailing newline yet)
}

func (w *lastLineWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n, err := w.dest.Write(p)
	if n == 0 {
		return n, err
	}

	w.mu.Lock()
	w.partial = append(w.partial, p[:n]...)
	for {
		idx := bytes.IndexByte(w.partial, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimRight(w.partial[:idx], "\r")
		if len(bytes.TrimSpace(line)) > 0 {
			w.lastLine = append(w.lastLine[:0], line...)
		}
		w.partial = w.partial[idx+1:]
	}
	w.mu.Unlock()

	return n, err
}

// LastLine returns the last non-empty complete line written, or the
// remaining partial if it is non-empty.
func (w *lastLineWriter) LastLine() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(bytes.TrimSpace(w.partial)) > 0 {
		return w.partial
	}
	return w.lastLine
}
