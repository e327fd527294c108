package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/kije/typst-mcp/internal/types"
)

// EnvPrefix is prepended to every environment variable read by LoadEnv.
const EnvPrefix = "TYPST_MCP"

// Env holds settings read from TYPST_MCP_* environment variables.
// Rule lists are comma-separated and only ever add to the defaults; there is
// deliberately no variable for the read allow list.
type Env struct {
	// Env: TYPST_MCP_DENY_READ (ignored when --read-allow-only is given)
	DenyRead []string `envconfig:"DENY_READ"`
	// Env: TYPST_MCP_ALLOW_WRITE
	AllowWrite []string `envconfig:"ALLOW_WRITE"`
	// Env: TYPST_MCP_ALLOW_DOMAINS
	AllowDomains []string `envconfig:"ALLOW_DOMAINS"`

	TempDir  string `envconfig:"TEMP_DIR"`
	CacheDir string `envconfig:"CACHE_DIR"`

	// Pointers stay nil when unset so the file value survives.
	PandocTimeout        *int  `envconfig:"PANDOC_TIMEOUT"`
	TypstCompileTimeout  *int  `envconfig:"TYPST_COMPILE_TIMEOUT"`
	CopyTimeout          *int  `envconfig:"COPY_TIMEOUT"`
	LauncherProbeTimeout *int  `envconfig:"LAUNCHER_PROBE_TIMEOUT"`
	VerboseLogging       *bool `envconfig:"VERBOSE_LOGGING"`
}

// LoadEnv reads the TYPST_MCP_* environment variables.
func LoadEnv() (*Env, error) {
	var e Env
	if err := envconfig.Process(EnvPrefix, &e); err != nil {
		return nil, fmt.Errorf("failed to load settings from environment: %w", err)
	}
	return &e, nil
}

// Apply overlays the environment onto c. Rule lists are not part of Config
// and are consumed directly by the caller.
func (e *Env) Apply(c *Config) {
	if e.TempDir != "" {
		c.Sandbox.TempDir = expandHome(e.TempDir)
	}
	if e.CacheDir != "" {
		c.CacheDir = expandHome(e.CacheDir)
	}
	if e.PandocTimeout != nil {
		c.Tools.PandocTimeout = *e.PandocTimeout
	}
	if e.TypstCompileTimeout != nil {
		c.Tools.TypstCompileTimeout = *e.TypstCompileTimeout
	}
	if e.CopyTimeout != nil {
		c.Tools.CopyTimeout = *e.CopyTimeout
	}
	if e.LauncherProbeTimeout != nil {
		c.Tools.LauncherProbeTimeout = *e.LauncherProbeTimeout
	}
	if e.VerboseLogging != nil && *e.VerboseLogging {
		c.Log.Level = types.LogLevelDebug
	}
}
