// Package types defines common type-safe enums used across the codebase.
package types

// LogLevel is a configured logger verbosity.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Valid returns true if the LogLevel is a known value. Empty means "use the default".
func (l LogLevel) Valid() bool {
	switch l {
	case "", LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}
	return false
}

// SandboxMethod identifies how sandboxed commands are launched.
type SandboxMethod string

const (
	// SandboxNone means commands run without OS-level sandboxing.
	SandboxNone SandboxMethod = "none"
	// SandboxDisabled means sandboxing was turned off with --disable-sandbox.
	SandboxDisabled SandboxMethod = "disabled"
	// SandboxSRTInstalled uses an srt binary found on PATH.
	SandboxSRTInstalled SandboxMethod = "srt-installed"
	// SandboxSRTNpx runs srt through npx, downloading it on first use.
	SandboxSRTNpx SandboxMethod = "srt-npx"
)

// Valid returns true if the SandboxMethod is a known valid value.
func (m SandboxMethod) Valid() bool {
	switch m {
	case SandboxNone, SandboxDisabled, SandboxSRTInstalled, SandboxSRTNpx:
		return true
	}
	return false
}

// IsSandboxed returns true if commands are wrapped by a launcher.
func (m SandboxMethod) IsSandboxed() bool {
	return m == SandboxSRTInstalled || m == SandboxSRTNpx
}

// ReadMode selects how read access is expressed in the settings document.
type ReadMode string

const (
	// ReadModeDeny allows reads everywhere except the deny list (default).
	ReadModeDeny ReadMode = "deny-list"
	// ReadModeAllowOnly allows reads only under the allow list, minus the deny list.
	ReadModeAllowOnly ReadMode = "allow-only"
)

// Valid returns true if the ReadMode is a known valid value.
func (m ReadMode) Valid() bool {
	return m == ReadModeDeny || m == ReadModeAllowOnly
}
