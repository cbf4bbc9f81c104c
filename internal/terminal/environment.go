package terminal

import (
	"os"
	"strings"
)

// appImageLeakedVars are set by the AppImage runtime and break terminals
// started from inside it.
var appImageLeakedVars = []string{"PYTHONHOME", "PYTHONPATH"}

// resolveWorkingDir returns preferred when it is an existing directory,
// otherwise the home directory, otherwise the temp dir.
func resolveWorkingDir(preferred string) string {
	if preferred = strings.TrimSpace(preferred); preferred != "" {
		if info, err := os.Stat(preferred); err == nil && info.IsDir() {
			return preferred
		}
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	return os.TempDir()
}

// childEnv merges extra over base ("KEY=VALUE" entries). When scrubAppImage
// is set and base carries APPIMAGE, the AppImage Python variables are dropped.
func childEnv(base []string, extra map[string]string, scrubAppImage bool) []string {
	drop := map[string]struct{}{}
	if scrubAppImage && envHasKey(base, "APPIMAGE") {
		for _, key := range appImageLeakedVars {
			drop[key] = struct{}{}
		}
	}
	for key := range extra {
		drop[key] = struct{}{}
	}

	out := make([]string, 0, len(base)+len(extra))
	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if _, skip := drop[key]; skip {
			continue
		}
		out = append(out, entry)
	}
	for key, value := range extra {
		out = append(out, key+"="+value)
	}
	return out
}

func envHasKey(env []string, key string) bool {
	for _, entry := range env {
		if k, _, ok := strings.Cut(entry, "="); ok && k == key {
			return true
		}
	}
	return false
}
