package terminal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"termlaunch/internal/shell"
)

const (
	scriptPrefix = "termlaunch-"
	scriptSuffix = ".sh"

	// ScriptMaxAge is how long a generated launch script is kept.
	ScriptMaxAge = 24 * time.Hour
)

// scriptContent renders the launch script body.
// Env exports are quoted; command is written as-is.
func scriptContent(command string, env map[string]string) string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env sh\n\n")
	for _, line := range shell.ExportLines(env) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if command != "" {
		b.WriteString(command)
		b.WriteByte('\n')
	}
	b.WriteString("exec $SHELL")
	return b.String()
}

func (l *Launcher) scriptDir() string {
	if l.ScriptDir != "" {
		return l.ScriptDir
	}
	return os.TempDir()
}

// writeScript writes a uniquely named, executable launch script and returns its path.
func (l *Launcher) writeScript(command string, env map[string]string) (string, error) {
	dir := l.scriptDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	path := filepath.Join(dir, scriptPrefix+uuid.NewString()+scriptSuffix)
	if err := os.WriteFile(path, []byte(scriptContent(command, env)), 0o755); err != nil {
		return "", fmt.Errorf("write launch script: %w", err)
	}
	// WriteFile honours umask; the script must be executable regardless.
	if err := os.Chmod(path, 0o755); err != nil {
		return "", fmt.Errorf("chmod launch script: %w", err)
	}
	slog.Debug("[DEBUG-TERMINAL] wrote launch script", "path", path)
	return path, nil
}

// CleanupScripts removes launch scripts in dir modified before now-maxAge.
// An empty dir means the temp dir. It returns the number of files removed.
func CleanupScripts(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	matches, err := filepath.Glob(filepath.Join(dir, scriptPrefix+"*"+scriptSuffix))
	if err != nil {
		return 0, fmt.Errorf("list launch scripts: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	var errs []error
	for _, path := range matches {
		info, statErr := os.Stat(path)
		if statErr != nil {
			if !errors.Is(statErr, os.ErrNotExist) {
				errs = append(errs, statErr)
			}
			continue
		}
		if info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			errs = append(errs, rmErr)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Debug("[DEBUG-TERMINAL] removed stale launch scripts", "dir", dir, "count", removed)
	}
	return removed, errors.Join(errs...)
}
