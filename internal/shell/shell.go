// Package shell holds the small amount of shell-syntax handling the launcher
// needs: splitting a command line into argv and quoting values for POSIX sh.
package shell

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/shlex"
)

// Split tokenizes cmd using POSIX-like quoting rules.
// An empty or whitespace-only command yields no arguments.
func Split(cmd string) ([]string, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, nil
	}
	args, err := shlex.Split(cmd)
	if err != nil {
		return nil, fmt.Errorf("split command: %w", err)
	}
	slog.Debug("[DEBUG-SHELL] split command", "original", cmd, "args", args)
	return args, nil
}

// Quote returns s as a single-quoted POSIX sh word.
// Values made only of safe characters are returned unchanged.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if isSafeWord(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// ExportLines renders env as sorted "export KEY=VALUE" lines.
// Entries whose key is not a valid variable name are skipped.
func ExportLines(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		if !IsEnvVarName(key) {
			slog.Warn("[WARN-SHELL] skipping invalid environment variable name", "key", key)
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, "export "+key+"="+Quote(env[key]))
	}
	return lines
}

// IsEnvVarName checks [A-Za-z_][A-Za-z0-9_]*.
func IsEnvVarName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if i == 0 {
			if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_') {
				return false
			}
		} else if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_') {
			return false
		}
	}
	return true
}

func isSafeWord(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case strings.ContainsRune("_-./:,+@%=", c):
		default:
			return false
		}
	}
	return true
}
