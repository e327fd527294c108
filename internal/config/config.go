package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kije/typst-mcp/internal/logger"
	"github.com/kije/typst-mcp/internal/types"
)

var cfgLog = logger.New("config")

// validate is the shared validator instance
var validate = validator.New()

// Config represents the typst-mcp configuration
type Config struct {
	Sandbox SandboxConfig `yaml:"sandbox"`
	Tools   ToolsConfig   `yaml:"tools"`
	Log     LogConfig     `yaml:"log"`
	// CacheDir holds downloaded packages and fonts (default: platform cache dir)
	CacheDir string `yaml:"cache_dir"`
}

// SandboxConfig holds settings for the sandbox launcher and its settings file
type SandboxConfig struct {
	// Strict makes a missing launcher or immutability primitive fatal
	Strict bool `yaml:"strict"`
	// TempDir is the private temp root (default: fresh typst-mcp-* under the system temp dir)
	TempDir string `yaml:"temp_dir"`
	// Monitor watches live settings files for tampering
	Monitor bool `yaml:"monitor"`
}

// ToolsConfig holds external tool timeouts, in seconds
type ToolsConfig struct {
	PandocTimeout        int `yaml:"pandoc_timeout" validate:"min=5,max=120"`
	TypstCompileTimeout  int `yaml:"typst_compile_timeout" validate:"min=5,max=120"`
	CopyTimeout          int `yaml:"copy_timeout" validate:"min=1,max=60"`
	LauncherProbeTimeout int `yaml:"launcher_probe_timeout" validate:"min=1,max=120"`
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (t ToolsConfig) Pandoc() time.Duration        { return seconds(t.PandocTimeout) }
func (t ToolsConfig) TypstCompile() time.Duration  { return seconds(t.TypstCompileTimeout) }
func (t ToolsConfig) Copy() time.Duration          { return seconds(t.CopyTimeout) }
func (t ToolsConfig) LauncherProbe() time.Duration { return seconds(t.LauncherProbeTimeout) }

// LogConfig holds logger settings
type LogConfig struct {
	Level   types.LogLevel `yaml:"level"`
	NoColor bool           `yaml:"no_color"`
}

// DefaultConfigPath returns the default config file path (~/.config/typst-mcp/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "typst-mcp", "config.yaml")
}

// DefaultCacheDir returns the per-platform cache directory for typst-mcp.
func DefaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "typst-mcp-cache")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "typst-mcp")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "typst-mcp")
		}
		return filepath.Join(home, "AppData", "Local", "typst-mcp")
	default:
		return filepath.Join(home, ".cache", "typst-mcp")
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Sandbox: SandboxConfig{
			Strict:  false,
			TempDir: "", // empty means a fresh private directory per process
			Monitor: false,
		},
		Tools: ToolsConfig{
			PandocTimeout:        30,
			TypstCompileTimeout:  60,
			CopyTimeout:          10,
			LauncherProbeTimeout: 30,
		},
		Log: LogConfig{
			Level: types.LogLevelInfo,
		},
		CacheDir: DefaultCacheDir(),
	}
}

// Validate checks all Config fields and returns a multi-error report.
// Call this AFTER environment and CLI overrides have been applied.
func (c *Config) Validate() error {
	var errs []string

	if !c.Log.Level.Valid() {
		errs = append(errs, fmt.Sprintf("log.level: unknown log level %q (valid: trace, debug, info, warn, error)", c.Log.Level))
	}

	if err := validate.Struct(c.Tools); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, toolsMessage(fe))
		}
	}

	if c.Sandbox.TempDir != "" && !filepath.IsAbs(c.Sandbox.TempDir) {
		errs = append(errs, fmt.Sprintf("sandbox.temp_dir: must be an absolute path (got %q)", c.Sandbox.TempDir))
	}
	if c.CacheDir != "" && !filepath.IsAbs(c.CacheDir) {
		errs = append(errs, fmt.Sprintf("cache_dir: must be an absolute path (got %q)", c.CacheDir))
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for i, e := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e)
	}
	return errors.New(sb.String())
}

// toolsMessage renders a timeout range failure with both the config key and
// the environment variable that can set it.
func toolsMessage(fe validator.FieldError) string {
	keys := map[string][2]string{
		"PandocTimeout":        {"tools.pandoc_timeout", "TYPST_MCP_PANDOC_TIMEOUT"},
		"TypstCompileTimeout":  {"tools.typst_compile_timeout", "TYPST_MCP_TYPST_COMPILE_TIMEOUT"},
		"CopyTimeout":          {"tools.copy_timeout", "TYPST_MCP_COPY_TIMEOUT"},
		"LauncherProbeTimeout": {"tools.launcher_probe_timeout", "TYPST_MCP_LAUNCHER_PROBE_TIMEOUT"},
	}
	k, ok := keys[fe.Field()]
	if !ok {
		return fmt.Sprintf("%s: %s", fe.Field(), fe.Tag())
	}
	bound := "at least"
	if fe.Tag() == "max" {
		bound = "at most"
	}
	return fmt.Sprintf("%s (%s): must be %s %s seconds (got %v)", k[0], k[1], bound, fe.Param(), fe.Value())
}

// isUnknownFieldError returns true if the error is from yaml.Decoder.KnownFields(true)
// detecting an unrecognized key (e.g. typo like "sandbx:").
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Note: Load does NOT call Validate(). Callers should apply environment and
// CLI overrides first, then call cfg.Validate() themselves.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Try strict decode to warn about unknown fields
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			// empty file
		case isUnknownFieldError(err):
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			// Re-parse without strict mode for forward compatibility
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		default:
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}

	cfg.Sandbox.TempDir = expandHome(cfg.Sandbox.TempDir)
	cfg.CacheDir = expandHome(cfg.CacheDir)
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
