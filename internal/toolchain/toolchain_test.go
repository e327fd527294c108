package toolchain

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kije/typst-mcp/internal/sandbox"
)

// fakeRunner records argv and lets a test decide the outcome.
type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	opts  []sandbox.RunOptions
	fn    func(argv []string) (*sandbox.Result, error)
}

func (f *fakeRunner) Run(_ context.Context, argv []string, opts sandbox.RunOptions) (*sandbox.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), argv...))
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.fn == nil {
		return &sandbox.Result{}, nil
	}
	return f.fn(argv)
}

func TestCompileSnippet(t *testing.T) {
	root := t.TempDir()
	r := &fakeRunner{fn: func(argv []string) (*sandbox.Result, error) {
		src, err := os.ReadFile(argv[2])
		if err != nil {
			return nil, err
		}
		require.Equal(t, "= Hello", string(src))
		return done(os.WriteFile(argv[3], []byte("%PDF-1.7"), 0o600))
	}}
	ty := NewTypst(r, root, 60*time.Second, 10*time.Second)

	pdf, err := ty.CompileSnippet(context.Background(), "= Hello")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(pdf))

	require.Len(t, r.calls, 1)
	argv := r.calls[0]
	assert.Equal(t, []string{"typst", "compile"}, argv[:2])
	assert.Equal(t, root, filepath.Dir(argv[2]))
	assert.Equal(t, ".typ", filepath.Ext(argv[2]))
	assert.Equal(t, ".pdf", filepath.Ext(argv[3]))
	assert.Equal(t, 60*time.Second, r.opts[0].Timeout)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "scratch files must be removed")
}

func done(err error) (*sandbox.Result, error) {
	if err != nil {
		return nil, err
	}
	return &sandbox.Result{}, nil
}

func TestCompileSnippetFailure(t *testing.T) {
	r := &fakeRunner{fn: func([]string) (*sandbox.Result, error) {
		return &sandbox.Result{
			ExitCode: 1,
			Stderr:   []byte("error: unknown variable: rac\n  ┌─ main.typ:1:7\n"),
		}, nil
	}}
	ty := NewTypst(r, t.TempDir(), 60*time.Second, 10*time.Second)

	err := ty.Check(context.Background(), `$a = \frac{1}{2}$`)
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "typst", te.Tool)
	assert.Equal(t, 1, te.ExitCode)
	assert.Contains(t, te.Stderr, "unknown variable: rac")
}

func TestCompileSnippetTooLarge(t *testing.T) {
	r := &fakeRunner{}
	ty := NewTypst(r, t.TempDir(), 60*time.Second, 10*time.Second)
	_, err := ty.CompileSnippet(context.Background(), strings.Repeat("x", MaxSnippetSize+1))
	require.Error(t, err)
	assert.Empty(t, r.calls)
}

func TestCompilePackageCache(t *testing.T) {
	r := &fakeRunner{}
	cache := filepath.Join(t.TempDir(), "cache")
	ty := NewTypst(r, t.TempDir(), time.Second, time.Second).WithPackageCache(cache)

	require.NoError(t, ty.Compile(context.Background(), filepath.Join(cache, "doc.typ"), ""))
	assert.Equal(t, []string{"TYPST_PACKAGE_CACHE_PATH=" + filepath.Join(cache, "packages")}, r.opts[0].Env)

	r2 := &fakeRunner{}
	require.NoError(t, NewTypst(r2, t.TempDir(), time.Second, time.Second).WithPackageCache("").Compile(context.Background(), "/x/doc.typ", ""))
	assert.Empty(t, r2.opts[0].Env)
}

func TestCompileToCopiesThroughRunner(t *testing.T) {
	root := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out.pdf")
	r := &fakeRunner{fn: func(argv []string) (*sandbox.Result, error) {
		switch argv[0] {
		case "typst":
			return done(os.WriteFile(argv[3], []byte("%PDF"), 0o600))
		case "cp":
			data, err := os.ReadFile(argv[1])
			if err != nil {
				return nil, err
			}
			return done(os.WriteFile(argv[2], data, 0o644))
		}
		return nil, errors.New("unexpected " + argv[0])
	}}

	orig := goos
	goos = "linux"
	t.Cleanup(func() { goos = orig })

	ty := NewTypst(r, root, time.Second, time.Second)
	require.NoError(t, ty.CompileTo(context.Background(), "= Title", dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
	require.Len(t, r.calls, 2)
	assert.Equal(t, "cp", r.calls[1][0])

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCompileRunnerError(t *testing.T) {
	boom := &sandbox.Error{Code: sandbox.ErrTimeout, Message: "typst"}
	r := &fakeRunner{fn: func([]string) (*sandbox.Result, error) { return nil, boom }}
	err := NewTypst(r, t.TempDir(), time.Second, time.Second).Compile(context.Background(), "/x/doc.typ", "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"typst", "compile", "/x/doc.typ"}, r.calls[0])
}

func TestConvertLaTeX(t *testing.T) {
	root := t.TempDir()
	r := &fakeRunner{fn: func(argv []string) (*sandbox.Result, error) {
		return done(os.WriteFile(argv[len(argv)-1], []byte("\n$ a / b $\n\n"), 0o600))
	}}
	p := NewPandoc(r, root, 30*time.Second)

	out, err := p.ConvertLaTeX(context.Background(), `$\frac{a}{b}$`)
	require.NoError(t, err)
	assert.Equal(t, "$ a / b $", out)

	argv := r.calls[0]
	require.Len(t, argv, 7)
	assert.Equal(t, []string{"pandoc", "--sandbox"}, argv[:2])
	assert.Equal(t, []string{"--from=latex", "--to=typst", "--output"}, argv[3:6])

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConvertLaTeXLimits(t *testing.T) {
	r := &fakeRunner{}
	_, err := NewPandoc(r, t.TempDir(), 30*time.Second).ConvertLaTeX(context.Background(), strings.Repeat("x", MaxLaTeXSize+1))
	require.Error(t, err)
	assert.Empty(t, r.calls)
}

func TestSecureCopyWindowsFallback(t *testing.T) {
	orig := goos
	goos = "windows"
	t.Cleanup(func() { goos = orig })

	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	dst := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(src, []byte("pdf"), 0o600))

	r := &fakeRunner{fn: func(argv []string) (*sandbox.Result, error) {
		if argv[0] == "cmd" {
			return nil, &sandbox.Error{Code: sandbox.ErrCommandNotFound, Message: "cmd"}
		}
		return done(os.WriteFile(dst, []byte("pdf"), 0o600))
	}}
	require.NoError(t, SecureCopy(context.Background(), r, src, dst, 10*time.Second))

	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"cmd", "/c", "copy", "/Y"}, r.calls[0][:4])
	assert.Equal(t, []string{"cp", src, dst}, r.calls[1])
}

func TestSecureCopyMissingSource(t *testing.T) {
	r := &fakeRunner{}
	err := SecureCopy(context.Background(), r, filepath.Join(t.TempDir(), "nope"), "/tmp/x", 10*time.Second)
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, r.calls)
}

func TestSecureCopyDestinationMissing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.pdf")
	require.NoError(t, os.WriteFile(src, nil, 0o600))

	r := &fakeRunner{}
	err := SecureCopy(context.Background(), r, src, filepath.Join(dir, "never-written.pdf"), 10*time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCheckDependencies(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	lookPath = func(name string) (string, error) {
		if name == "typst" {
			return "/usr/bin/typst", nil
		}
		return "", exec.ErrNotFound
	}
	missing := CheckDependencies()
	require.Len(t, missing, 1)
	assert.Equal(t, "pandoc", missing[0].Name)

	lookPath = func(string) (string, error) { return "", errors.New("no") }
	assert.Len(t, CheckDependencies(), len(RequiredTools))
}

func TestToolErrorMessage(t *testing.T) {
	assert.Equal(t, "pandoc failed (exit 64): bad input", (&ToolError{Tool: "pandoc", ExitCode: 64, Stderr: "bad input"}).Error())
	assert.Equal(t, "cp failed (exit 1): no error output", (&ToolError{Tool: "cp", ExitCode: 1}).Error())
}
