package sandbox

import (
	"os"
	"runtime"
	"strings"
)

// sanitizedEnv returns a minimal, safe environment for the child process.
// Only allowlisted variables are passed through to prevent leaking secrets
// (API keys, tokens, etc.) into the sandbox. extra entries (KEY=VALUE) are
// appended last and win over inherited ones.
func sanitizedEnv(extra []string) []string {
	var env []string
	for _, key := range safeEnvKeys() {
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}
	for _, kv := range os.Environ() {
		key, _, ok := strings.Cut(kv, "=")
		if ok && isTypstKey(key) {
			env = append(env, kv)
		}
	}
	return append(env, extra...)
}

// isTypstKey passes the typst compiler's own settings (font and package
// paths) through. TYPST_MCP_* is ours and stays behind.
func isTypstKey(key string) bool {
	return strings.HasPrefix(key, "TYPST_") && !strings.HasPrefix(key, "TYPST_MCP_")
}

// safeEnvKeys returns the platform-appropriate set of safe environment variable names.
func safeEnvKeys() []string {
	if runtime.GOOS == "windows" {
		return []string{
			"PATH", "USERPROFILE", "USERNAME", "HOMEDRIVE", "HOMEPATH",
			"LANG", "TERM", "TEMP", "TMP", "TZ",
			"SYSTEMROOT", "COMSPEC", "PATHEXT",
			"APPDATA", "LOCALAPPDATA", // npx needs these to find its cache
		}
	}
	return []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "TERM", "SHELL", "TMPDIR", "TZ", "XDG_CACHE_HOME"}
}
