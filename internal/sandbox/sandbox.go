// Package sandbox runs external tools under the sandbox runtime (srt). Each
// command gets its own sealed settings file, handed to the launcher as an
// argv element and released when the command exits.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/syntax"

	"github.com/kije/typst-mcp/internal/logger"
	"github.com/kije/typst-mcp/internal/rules"
	"github.com/kije/typst-mcp/internal/securefile"
	"github.com/kije/typst-mcp/internal/types"
)

var log = logger.New("sandbox")

// Config assembles a Sandbox.
type Config struct {
	Launcher Launcher
	Rules    rules.AccessRules
	// Serializer defaults to one expanding ~ against the user's home.
	Serializer *rules.Serializer
	// SettingsDir receives the settings files. It must pass
	// securefile.ValidateDirectory.
	SettingsDir string
	Strict      bool
	// Enforcer overrides the platform immutability enforcer.
	Enforcer securefile.Enforcer
	Registry *securefile.Registry
	// Monitor, if set, watches each live settings file.
	Monitor *securefile.Monitor
}

// Sandbox wraps command execution in the configured launcher.
type Sandbox struct {
	cfg Config
}

// New creates a new Sandbox instance.
func New(cfg Config) *Sandbox {
	if cfg.Registry == nil {
		cfg.Registry = securefile.NewRegistry()
	}
	if cfg.Serializer == nil {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Warn("Cannot determine home directory, ~ entries stay unexpanded: %v", err)
		}
		cfg.Serializer = rules.NewSerializer(home)
	}
	return &Sandbox{cfg: cfg}
}

// Method reports how commands are launched.
func (s *Sandbox) Method() types.SandboxMethod {
	return s.cfg.Launcher.Method
}

// Rules returns the access rules written into every settings file.
func (s *Sandbox) Rules() rules.AccessRules {
	return s.cfg.Rules
}

// Registry tracks the live settings files.
func (s *Sandbox) Registry() *securefile.Registry {
	return s.cfg.Registry
}

// Cmd is an *exec.Cmd bound to the settings file it was wrapped with.
type Cmd struct {
	*exec.Cmd
	Settings *securefile.SecureFile

	release   func()
	releaseMu sync.Once
}

// Release deletes the settings file. Call it after Wait; Run does this itself.
func (c *Cmd) Release() {
	c.releaseMu.Do(func() {
		if c.release != nil {
			c.release()
		}
	})
}

// Command returns argv wrapped by the launcher, with the sanitized
// environment plus env. When the sandbox is active a fresh settings file is
// sealed first; if that fails the command is not built, so there is no
// unsandboxed fallback for a settings failure.
func (s *Sandbox) Command(ctx context.Context, argv []string, env ...string) (*Cmd, error) {
	if len(argv) == 0 {
		return nil, errors.New("no command specified")
	}
	if !s.cfg.Launcher.Method.IsSandboxed() {
		return s.newCmd(ctx, argv, env, nil, nil), nil
	}

	sf, err := s.Seal()
	if err != nil {
		return nil, err
	}
	release := func() {
		if s.cfg.Monitor != nil {
			s.cfg.Monitor.Forget(sf.Path())
		}
		if err := sf.Release(); err != nil {
			log.Warn("Settings file left behind: %v", err)
		}
	}
	wrapped := s.cfg.Launcher.Wrap(sf.Path(), argv)
	log.Debug("Running %s", Describe(wrapped))
	return s.newCmd(ctx, wrapped, env, sf, release), nil
}

func (s *Sandbox) newCmd(ctx context.Context, argv, env []string, sf *securefile.SecureFile, release func()) *Cmd {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) // nosemgrep: go.lang.security.audit.dangerous-exec-command.dangerous-exec-command -- argv is built by callers in this module, never from a shell string
	cmd.Env = sanitizedEnv(env)
	return &Cmd{Cmd: cmd, Settings: sf, release: release}
}

// Seal writes the current rules into a new sealed settings file. Callers
// other than Command own the returned file and must Release it.
func (s *Sandbox) Seal() (*securefile.SecureFile, error) {
	ser := s.cfg.Serializer
	sf, err := securefile.Create(s.cfg.SettingsDir, func(path string) ([]byte, error) {
		return ser.Serialize(s.cfg.Rules, path)
	}, securefile.Options{
		Strict:   s.cfg.Strict,
		Enforcer: s.cfg.Enforcer,
		Registry: s.cfg.Registry,
	})
	if err != nil {
		return nil, fmt.Errorf("prepare sandbox settings: %w", err)
	}
	if s.cfg.Monitor != nil {
		if err := s.cfg.Monitor.Watch(sf.Path()); err != nil {
			log.Warn("Cannot monitor %s: %v", sf.Path(), err)
		}
	}
	return sf, nil
}

// Close releases every settings file still alive.
func (s *Sandbox) Close() error {
	for _, p := range s.cfg.Registry.Paths() {
		if s.cfg.Monitor != nil {
			s.cfg.Monitor.Forget(p)
		}
	}
	return s.cfg.Registry.ReleaseAll()
}

// Describe renders argv as a shell-quoted line for logs. It is display
// only; commands are never run through a shell.
func Describe(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		q, err := syntax.Quote(a, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", a)
		}
		parts[i] = q
	}
	return strings.Join(parts, " ")
}
