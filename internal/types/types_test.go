package types

import "testing"

func TestLogLevelValid(t *testing.T) {
	valid := []LogLevel{LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, ""}
	for _, l := range valid {
		if !l.Valid() {
			t.Errorf("LogLevel(%q).Valid() = false, want true", l)
		}
	}
	invalid := []LogLevel{"invalid", "verbose", "fatal", "warning"}
	for _, l := range invalid {
		if l.Valid() {
			t.Errorf("LogLevel(%q).Valid() = true, want false", l)
		}
	}
}

func TestSandboxMethod(t *testing.T) {
	tests := []struct {
		method    SandboxMethod
		valid     bool
		sandboxed bool
	}{
		{SandboxSRTInstalled, true, true},
		{SandboxSRTNpx, true, true},
		{SandboxNone, true, false},
		{SandboxDisabled, true, false},
		{"firejail", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		if got := tt.method.Valid(); got != tt.valid {
			t.Errorf("SandboxMethod(%q).Valid() = %v, want %v", tt.method, got, tt.valid)
		}
		if got := tt.method.IsSandboxed(); got != tt.sandboxed {
			t.Errorf("SandboxMethod(%q).IsSandboxed() = %v, want %v", tt.method, got, tt.sandboxed)
		}
	}
}

func TestReadModeValid(t *testing.T) {
	if !ReadModeDeny.Valid() || !ReadModeAllowOnly.Valid() {
		t.Error("known read modes should be valid")
	}
	if ReadMode("allow-all").Valid() {
		t.Error("arbitrary string should not be valid")
	}
}
