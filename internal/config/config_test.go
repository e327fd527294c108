package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kije/typst-mcp/internal/types"
)

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Tools.PandocTimeout != 30 {
		t.Errorf("PandocTimeout = %d, want 30", cfg.Tools.PandocTimeout)
	}
	if cfg.Tools.TypstCompileTimeout != 60 {
		t.Errorf("TypstCompileTimeout = %d, want 60", cfg.Tools.TypstCompileTimeout)
	}
	if cfg.Tools.CopyTimeout != 10 {
		t.Errorf("CopyTimeout = %d, want 10", cfg.Tools.CopyTimeout)
	}
	if cfg.Tools.LauncherProbeTimeout != 30 {
		t.Errorf("LauncherProbeTimeout = %d, want 30", cfg.Tools.LauncherProbeTimeout)
	}
	if cfg.Sandbox.Strict {
		t.Error("Strict should default to false")
	}
	if cfg.Log.Level != types.LogLevelInfo {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.CacheDir == "" {
		t.Error("CacheDir should have a default")
	}
}

func TestValidate_DefaultConfig(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestValidate_TimeoutRanges(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ToolsConfig)
		wantErr string
	}{
		{"pandoc low", func(c *ToolsConfig) { c.PandocTimeout = 4 }, "tools.pandoc_timeout"},
		{"pandoc high", func(c *ToolsConfig) { c.PandocTimeout = 121 }, "at most 120"},
		{"pandoc edge", func(c *ToolsConfig) { c.PandocTimeout = 5 }, ""},
		{"compile high", func(c *ToolsConfig) { c.TypstCompileTimeout = 500 }, "TYPST_MCP_TYPST_COMPILE_TIMEOUT"},
		{"copy zero", func(c *ToolsConfig) { c.CopyTimeout = 0 }, "at least 1"},
		{"copy edge", func(c *ToolsConfig) { c.CopyTimeout = 60 }, ""},
		{"probe high", func(c *ToolsConfig) { c.LauncherProbeTimeout = 121 }, "tools.launcher_probe_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Tools)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "log.level") {
		t.Fatalf("expected log.level error, got %v", err)
	}
}

func TestValidate_RelativePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sandbox.TempDir = "tmp"
	cfg.CacheDir = "cache"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"sandbox.temp_dir", "cache_dir"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	cfg.Tools.PandocTimeout = 1
	cfg.Tools.CopyTimeout = 100
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"1.", "2.", "3."} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected numbered entry %q in:\n%v", want, err)
		}
	}
}

func TestLoad_FileNotExist(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tools.PandocTimeout != 30 {
		t.Error("missing file should yield defaults")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tools.TypstCompileTimeout != 60 {
		t.Error("empty file should yield defaults")
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
sandbox:
  strict: true
  monitor: true
tools:
  pandoc_timeout: 45
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Sandbox.Strict || !cfg.Sandbox.Monitor {
		t.Error("sandbox settings not loaded")
	}
	if cfg.Tools.PandocTimeout != 45 {
		t.Errorf("PandocTimeout = %d, want 45", cfg.Tools.PandocTimeout)
	}
	if cfg.Tools.CopyTimeout != 10 {
		t.Errorf("unset CopyTimeout should keep default, got %d", cfg.Tools.CopyTimeout)
	}
	if cfg.Log.Level != types.LogLevelDebug {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "sandbox:\n  strict: true\n  stirct: false\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unknown fields should be tolerated: %v", err)
	}
	if !cfg.Sandbox.Strict {
		t.Error("known fields should still be loaded")
	}
}

func TestLoad_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("tools: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	p := DefaultConfigPath()
	if !strings.HasSuffix(p, filepath.Join("typst-mcp", "config.yaml")) {
		t.Errorf("DefaultConfigPath() = %q", p)
	}
}
