package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"

	"github.com/kije/typst-mcp/internal/config"
	"github.com/kije/typst-mcp/internal/logger"
	"github.com/kije/typst-mcp/internal/rules"
	"github.com/kije/typst-mcp/internal/sandbox"
	"github.com/kije/typst-mcp/internal/securefile"
	"github.com/kije/typst-mcp/internal/toolchain"
	"github.com/kije/typst-mcp/internal/tui"
	"github.com/kije/typst-mcp/internal/types"
	"github.com/kije/typst-mcp/internal/workspace"
)

var log = logger.New("main")

// sandboxFlags are shared by every command that launches a child.
// --read-allow-only and --disable-sandbox have no environment equivalent.
type sandboxFlags struct {
	fs *pflag.FlagSet

	configPath     string
	strict         bool
	readAllowOnly  []string
	disableSandbox bool
	logLevel       string
	noColor        bool
}

func newFlagSet(name string) (*pflag.FlagSet, *sandboxFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	f := &sandboxFlags{fs: fs}
	fs.StringVar(&f.configPath, "config", config.DefaultConfigPath(), "Path to configuration file")
	fs.BoolVar(&f.strict, "strict", false, "Fail instead of degrading when protection is unavailable")
	fs.StringSliceVar(&f.readAllowOnly, "read-allow-only", nil, "Only allow reads under these paths")
	fs.BoolVar(&f.disableSandbox, "disable-sandbox", false, "Run tools without the sandbox")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colors")
	return fs, f
}

// allowOnly returns the read allow list, or nil when the flag was not given.
// An explicitly empty flag yields a non-nil empty list, which rules.Build
// rejects.
func (f *sandboxFlags) allowOnly() []string {
	if !f.fs.Changed("read-allow-only") {
		return nil
	}
	if f.readAllowOnly == nil {
		return []string{}
	}
	return f.readAllowOnly
}

// loadSettings layers defaults < file < environment < flags and validates
// the result.
func loadSettings(f *sandboxFlags) (*config.Config, *config.Env, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config %s: %w", f.configPath, err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return nil, nil, err
	}
	env.Apply(cfg)

	if f.strict {
		cfg.Sandbox.Strict = true
	}
	if f.logLevel != "" {
		cfg.Log.Level = types.LogLevel(f.logLevel)
	}
	if f.noColor {
		cfg.Log.NoColor = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger.SetGlobalLevelFromString(string(cfg.Log.Level))
	if cfg.Log.NoColor {
		logger.SetColored(false)
		tui.SetPlainMode(true)
	}
	return cfg, env, nil
}

// app is everything a sandboxed command needs. Close releases it in
// reverse order of construction.
type app struct {
	cfg      *config.Config
	ws       *workspace.Workspace
	sb       *sandbox.Sandbox
	monitor  *securefile.Monitor
	launcher sandbox.Launcher
	rules    rules.AccessRules
	home     string
	workDir  string
}

func openApp(ctx context.Context, f *sandboxFlags) (*app, error) {
	cfg, env, err := loadSettings(f)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.Open(workspace.Options{TempDir: cfg.Sandbox.TempDir, CacheDir: cfg.CacheDir})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, ws: ws}

	a.launcher, err = sandbox.Detect(ctx, sandbox.DetectOptions{
		Disabled:     f.disableSandbox,
		ProbeTimeout: cfg.Tools.LauncherProbe(),
	})
	if err != nil {
		if cfg.Sandbox.Strict {
			_ = a.Close()
			return nil, err
		}
		tui.PrintBanner(tui.SeverityError, "Sandbox unavailable: tools will run WITHOUT isolation",
			append([]string{oneLine(err)}, sandbox.InstallHints()...)...)
	}
	if a.launcher.Method == types.SandboxDisabled {
		tui.PrintBanner(tui.SeverityWarning, "Sandbox disabled by --disable-sandbox",
			"typst and pandoc can read and write anything this user can.")
	}

	a.home, _ = os.UserHomeDir()
	a.workDir, _ = os.Getwd()
	a.rules, err = rules.Build(rules.Sources{
		HomeDir:         a.home,
		WorkDir:         a.workDir,
		SystemTempDir:   os.TempDir(),
		TempRoot:        ws.TempRoot(),
		CacheDir:        ws.CacheDir(),
		EnvDenyRead:     env.DenyRead,
		EnvAllowWrite:   env.AllowWrite,
		EnvAllowDomains: env.AllowDomains,
		ReadAllowOnly:   f.allowOnly(),
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Sandbox.Monitor {
		a.monitor, err = securefile.NewMonitor(func(path string, op fsnotify.Op) {
			log.Warn("Settings file %s changed while in use (%s)", path, op)
		})
		if err != nil {
			log.Warn("Tamper monitor unavailable: %v", err)
		}
	}

	a.sb = sandbox.New(sandbox.Config{
		Launcher:    a.launcher,
		Rules:       a.rules,
		Serializer:  rules.NewSerializer(a.home),
		SettingsDir: ws.TempRoot(),
		Strict:      cfg.Sandbox.Strict,
		Monitor:     a.monitor,
	})
	return a, nil
}

// typst returns a compiler bound to the sandbox, the temp root and the
// package cache.
func (a *app) typst() *toolchain.Typst {
	return toolchain.NewTypst(a.sb, a.ws.TempRoot(), a.cfg.Tools.TypstCompile(), a.cfg.Tools.Copy()).
		WithPackageCache(a.ws.CacheDir())
}

// Close releases live settings files, stops the monitor and removes the
// temp root.
func (a *app) Close() error {
	var errs []error
	if a.sb != nil {
		if err := a.sb.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.monitor != nil {
		if err := a.monitor.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.ws.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// closeApp is deferred by handlers; a cleanup failure is reported but does
// not change the command's outcome.
func closeApp(a *app) {
	if err := a.Close(); err != nil {
		log.Warn("Cleanup incomplete: %v", err)
	}
}

// parse parses args, treating -h as success.
func parse(fs *pflag.FlagSet, args []string) (bool, error) {
	err := fs.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return false, nil
	}
	return err == nil, err
}
