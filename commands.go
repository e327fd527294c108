package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/kije/typst-mcp/internal/completion"
	"github.com/kije/typst-mcp/internal/rules"
	"github.com/kije/typst-mcp/internal/sandbox"
	"github.com/kije/typst-mcp/internal/securefile"
	"github.com/kije/typst-mcp/internal/toolchain"
	"github.com/kije/typst-mcp/internal/tui"
	"github.com/kije/typst-mcp/internal/workspace"
)

// runRun runs an arbitrary command under the sandbox with the caller's
// stdio attached. The child's exit status becomes ours.
func runRun(ctx context.Context, args []string) error {
	fs, f := newFlagSet("run")
	dryRun := fs.Bool("dry-run", false, "Print the wrapped command and settings instead of running")
	// Flags after the command belong to the child.
	fs.SetInterspersed(false)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	argv := fs.Args()
	if len(argv) == 0 {
		return errors.New("usage: typst-mcp run [flags] -- <cmd> [args...]")
	}

	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if *dryRun {
		return dryRunCommand(a, argv)
	}

	res, err := a.sb.Run(ctx, argv, sandbox.RunOptions{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		log.Debug("%s exited %d after %s", argv[0], res.ExitCode, res.Duration)
		return &exitError{code: res.ExitCode}
	}
	return nil
}

func dryRunCommand(a *app, argv []string) error {
	if !a.launcher.Method.IsSandboxed() {
		fmt.Println(sandbox.Describe(argv))
		return nil
	}
	sf, err := a.sb.Seal()
	if err != nil {
		return err
	}
	defer releaseQuietly(sf)

	data, err := os.ReadFile(sf.Path())
	if err != nil {
		return err
	}
	fmt.Println(sandbox.Describe(a.launcher.Wrap(sf.Path(), argv)))
	fmt.Println(tui.Separator("settings"))
	fmt.Print(string(data))
	return nil
}

// runPrintSettings writes the settings document that would be handed to the
// launcher, sealed exactly as for a real command.
func runPrintSettings(ctx context.Context, args []string) error {
	fs, f := newFlagSet("print-settings")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	sf, err := a.sb.Seal()
	if err != nil {
		return err
	}
	defer releaseQuietly(sf)

	data, err := os.ReadFile(sf.Path())
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// runCheckSandbox seals a settings file and reports what protection it got,
// then checks that the sensitive paths stay unreadable under the rules.
func runCheckSandbox(ctx context.Context, args []string) error {
	fs, f := newFlagSet("check-sandbox")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	sf, err := a.sb.Seal()
	if err != nil {
		return err
	}
	state, mechanism, warnings := sf.State(), sf.Mechanism(), sf.Warnings()
	if err := sf.Release(); err != nil {
		return fmt.Errorf("release test settings file: %w", err)
	}

	launcher := string(a.launcher.Method)
	if a.launcher.Path != "" {
		launcher += " (" + a.launcher.Path + ")"
	}
	fmt.Println(tui.Separator("Sandbox"))
	fmt.Print(tui.AlignColumns([][2]string{
		{"launcher", launcher},
		{"enforcer", securefile.Platform().Name()},
		{"settings file", state.String() + ", " + mechanism},
		{"read mode", string(a.rules.Mode())},
		{"temp root", a.ws.TempRoot()},
		{"strict", fmt.Sprint(a.cfg.Sandbox.Strict)},
	}, "  ", 2, tui.StyleMuted, tui.StyleBold))
	for _, w := range warnings {
		tui.PrintWarning(w)
	}

	n := rules.NewNormalizer(a.home, a.workDir)
	var exposed []string
	for _, p := range rules.SensitivePaths(a.home) {
		abs := n.Absolute(p)
		ok, err := a.rules.ReadExposed(abs, n)
		if err != nil {
			return err
		}
		if ok {
			exposed = append(exposed, abs)
		}
	}
	if len(exposed) > 0 {
		return fmt.Errorf("sensitive paths readable under the current rules: %s", strings.Join(exposed, ", "))
	}
	if !a.launcher.Method.IsSandboxed() {
		return fmt.Errorf("commands run without a sandbox (%s)", a.launcher.Method)
	}
	tui.PrintSuccess("Sandbox ready")
	return nil
}

func runCompile(ctx context.Context, args []string) error {
	fs, f := newFlagSet("compile")
	output := fs.StringP("output", "o", "", "Output PDF (default: next to the source)")
	snippet := fs.Bool("snippet", false, "Treat the argument as loose typst source (file or -); requires --output")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: typst-mcp compile [flags] <file.typ>")
	}
	if *snippet && *output == "" {
		return errors.New("compile --snippet requires --output")
	}
	out := *output
	var err error
	if out != "" {
		if out, err = filepath.Abs(out); err != nil {
			return err
		}
	}

	if *snippet {
		source, err := readInput(fs.Arg(0))
		if err != nil {
			return err
		}
		a, err := openApp(ctx, f)
		if err != nil {
			return err
		}
		defer closeApp(a)
		if err := a.typst().CompileTo(ctx, source, out); err != nil {
			return err
		}
		tui.PrintSuccess("Wrote " + out)
		return nil
	}

	src, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return err
	}
	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.typst().Compile(ctx, src, out); err != nil {
		return err
	}
	if out == "" {
		out = strings.TrimSuffix(src, filepath.Ext(src)) + ".pdf"
	}
	tui.PrintSuccess("Wrote " + out)
	return nil
}

// runCheck compiles a typst file or stdin without keeping the PDF and
// prints the compiler diagnostics on failure.
func runCheck(ctx context.Context, args []string) error {
	fs, f := newFlagSet("check")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: typst-mcp check [flags] <file.typ|->")
	}
	source, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}

	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	if err := a.typst().Check(ctx, source); err != nil {
		var te *toolchain.ToolError
		if errors.As(err, &te) && te.Stderr != "" {
			fmt.Fprintln(os.Stderr, strings.TrimRight(te.Stderr, "\n"))
			return &exitError{code: 1}
		}
		return err
	}
	tui.PrintSuccess("No errors")
	return nil
}

func runConvertLaTeX(ctx context.Context, args []string) error {
	fs, f := newFlagSet("convert-latex")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: typst-mcp convert-latex [flags] <file.tex|->")
	}
	latex, err := readInput(fs.Arg(0))
	if err != nil {
		return err
	}

	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	typ, err := toolchain.NewPandoc(a.sb, a.ws.TempRoot(), a.cfg.Tools.Pandoc()).ConvertLaTeX(ctx, latex)
	if err != nil {
		return err
	}
	fmt.Println(typ)
	return nil
}

func readInput(name string) (string, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, toolchain.MaxLaTeXSize+1))
	} else {
		data, err = os.ReadFile(name)
	}
	return string(data), err
}

func runCopy(ctx context.Context, args []string) error {
	fs, f := newFlagSet("copy")
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: typst-mcp copy [flags] <src> <dst>")
	}
	a, err := openApp(ctx, f)
	if err != nil {
		return err
	}
	defer closeApp(a)

	return toolchain.SecureCopy(ctx, a.sb, fs.Arg(0), fs.Arg(1), a.cfg.Tools.Copy())
}

func runDeps(_ context.Context, args []string) error {
	if len(args) > 0 {
		return errors.New("deps takes no arguments")
	}
	missing := toolchain.CheckDependencies()
	if len(missing) == 0 {
		tui.PrintSuccess("typst and pandoc found")
		return nil
	}
	for _, t := range missing {
		tui.PrintError(fmt.Sprintf("%s not found: %s (%s)", t.Name, t.Info, tui.Hyperlink(t.URL, t.URL)))
	}
	for _, h := range toolchain.DependencyHints() {
		fmt.Fprintln(os.Stderr, "  "+h)
	}
	return fmt.Errorf("%d required tool(s) missing", len(missing))
}

func runCleanup(_ context.Context, args []string) error {
	if len(args) > 0 {
		return errors.New("cleanup takes no arguments")
	}
	removed, err := workspace.CleanupStale("")
	for _, dir := range removed {
		tui.PrintInfo("Removed " + dir)
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		tui.PrintInfo("Nothing to clean up")
	}
	return nil
}

func runCompletion(_ context.Context, args []string) error {
	fs := pflag.NewFlagSet("completion", pflag.ContinueOnError)
	doInstall := fs.Bool("install", false, "Install shell completion")
	doUninstall := fs.Bool("uninstall", false, "Remove shell completion")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	switch {
	case *doInstall:
		if completion.IsInstalled() {
			tui.PrintInfo("Shell completion is already installed")
			return nil
		}
		if err := completion.Install(); err != nil {
			return fmt.Errorf("install completion: %w", err)
		}
		tui.PrintSuccess("Shell completion installed; restart your shell")
	case *doUninstall:
		if err := completion.Uninstall(); err != nil {
			return fmt.Errorf("uninstall completion: %w", err)
		}
		tui.PrintSuccess("Shell completion removed")
	default:
		if completion.IsInstalled() {
			tui.PrintInfo("Shell completion is installed")
		} else {
			tui.PrintInfo("Shell completion is not installed (typst-mcp completion --install)")
		}
	}
	return nil
}

func releaseQuietly(sf *securefile.SecureFile) {
	if err := sf.Release(); err != nil {
		log.Warn("Settings file left behind: %v", err)
	}
}
