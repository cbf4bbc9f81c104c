package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"termlaunch/internal/shell"
	"termlaunch/internal/terminal"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	// Use a short linear backoff: baseDelay * (1..maxRenameRetry).
	renameRetryBaseDelay = 10 * time.Millisecond

	DefaultHistoryLimit = 200
	MaxHistoryLimit     = 10000
)

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var goosFn = func() string { return runtime.GOOS }
var windowsEnvTokenPattern = regexp.MustCompile(`%[A-Za-z_][A-Za-z0-9_]*%`)
var posixEnvTokenPattern = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}|\$[A-Za-z_][A-Za-z0-9_]*`)
var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is termlaunch runtime configuration.
type Config struct {
	// DefaultTerminal is preselected in the UI and used by the CLI when no
	// terminal argument is given.
	DefaultTerminal string `yaml:"default_terminal" json:"default_terminal"`
	// WorkingDir is the directory new terminals start in.
	// Empty string means the user's home directory.
	WorkingDir string `yaml:"working_dir,omitempty" json:"working_dir,omitempty"`
	// Env is exported into every launched terminal on top of per-launch variables.
	Env map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	// Kubeconfig overrides the kubeconfig used for namespace and pod lookup.
	Kubeconfig        string `yaml:"kubeconfig,omitempty" json:"kubeconfig,omitempty"`
	PrecheckInstalled bool   `yaml:"precheck_installed" json:"precheck_installed"`
	HistoryLimit      int    `yaml:"history_limit" json:"history_limit"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		DefaultTerminal:   string(DefaultTerminalFor(goosFn())),
		PrecheckInstalled: true,
		HistoryLimit:      DefaultHistoryLimit,
	}
}

// DefaultTerminalFor returns the stock terminal of goos.
func DefaultTerminalFor(goos string) terminal.Terminal {
	switch goos {
	case "windows":
		return terminal.WindowsDefault
	case "darwin":
		return terminal.AppleTerminal
	default:
		return terminal.GNOMETerminal
	}
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
// The temp-dir fallback is not a stable persistence location and may vary
// between sessions depending on environment configuration.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; settings persistence may be limited.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "termlaunch", "config.yaml")
}

// Load reads config file. If file does not exist, defaults are returned.
// An unknown default_terminal is reported as an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}

	hasPrecheck, probeErr := probeRawPrecheckInstalled(raw)
	if probeErr != nil {
		slog.Warn("[WARN-CONFIG] failed to resolve precheck_installed metadata, preserving parsed value", "error", probeErr)
	} else if !hasPrecheck {
		cfg.PrecheckInstalled = DefaultConfig().PrecheckInstalled
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Env != nil {
		dst.Env = make(map[string]string, len(src.Env))
		maps.Copy(dst.Env, src.Env)
	}
	return dst
}

// Save validates cfg and writes it atomically to path, which must lie
// inside the default config directory.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in-place.
// MUTATES: cfg is directly modified.
func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()
	if strings.TrimSpace(cfg.DefaultTerminal) == "" {
		cfg.DefaultTerminal = defaults.DefaultTerminal
	}
	term, err := terminal.Parse(cfg.DefaultTerminal)
	if err != nil {
		return fmt.Errorf("default_terminal: %w", err)
	}
	cfg.DefaultTerminal = string(term)

	validateHistoryLimit(cfg)
	cfg.Env = sanitizeEnvMap(cfg.Env, "env")
	cfg.WorkingDir = normalizePath(cfg.WorkingDir, "working_dir")
	cfg.Kubeconfig = normalizePath(cfg.Kubeconfig, "kubeconfig")
	return nil
}

// validateHistoryLimit clamps HistoryLimit into [1, MaxHistoryLimit].
// Zero or negative values fall back to DefaultHistoryLimit.
func validateHistoryLimit(cfg *Config) {
	switch {
	case cfg.HistoryLimit <= 0:
		cfg.HistoryLimit = DefaultHistoryLimit
	case cfg.HistoryLimit > MaxHistoryLimit:
		slog.Warn("[WARN-CONFIG] history_limit too large, clamping", "value", cfg.HistoryLimit, "max", MaxHistoryLimit)
		cfg.HistoryLimit = MaxHistoryLimit
	}
}

// normalizePath expands ~ and environment tokens in a path setting, applies
// filepath.Clean and clears non-absolute paths with a warning (non-fatal).
func normalizePath(dir string, field string) string {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return ""
	}
	if strings.HasPrefix(dir, "~") {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] "+field+": failed to expand ~, ignoring", "path", dir, "error", err)
			return ""
		}
		dir = filepath.Join(home, dir[1:])
	}
	dir = expandEnvTokens(dir)
	dir = filepath.Clean(dir)
	if !filepath.IsAbs(dir) {
		slog.Warn("[WARN-CONFIG] "+field+" is not an absolute path, ignoring", "path", dir)
		return ""
	}
	return dir
}

func expandEnvTokens(dir string) string {
	if dir == "" {
		return ""
	}
	// Expand Windows-style %VAR% tokens on all platforms for portability.
	expanded := windowsEnvTokenPattern.ReplaceAllStringFunc(dir, func(token string) string {
		key := token[1 : len(token)-1]
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return token
	})
	// '$' is a valid character in Windows file paths.
	if goosFn() == "windows" {
		return expanded
	}
	return posixEnvTokenPattern.ReplaceAllStringFunc(expanded, func(token string) string {
		key := strings.TrimPrefix(token, "$")
		key = strings.TrimPrefix(key, "{")
		key = strings.TrimSuffix(key, "}")
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return token
	})
}

// maxEnvValueBytes is the size above which env values are reported.
const maxEnvValueBytes = 8192

// sanitizeEnvMap keeps the entries that can be exported from a launch script.
// Keys must be shell identifiers; NUL bytes are stripped from values and
// values are trimmed. Keys that differ only in case collide on Windows, so
// only the first in sorted order survives. Returns nil when nothing is left.
func sanitizeEnvMap(entries map[string]string, field string) map[string]string {
	keys := slices.Sorted(maps.Keys(entries))
	cleaned := make(map[string]string, len(keys))
	kept := make(map[string]string, len(keys))
	for _, rawKey := range keys {
		key := strings.TrimSpace(rawKey)
		if !shell.IsEnvVarName(key) {
			slog.Warn("[WARN-CONFIG] "+field+": dropped entry with invalid variable name", "key", rawKey)
			continue
		}
		if first, dup := kept[strings.ToUpper(key)]; dup {
			slog.Warn("[WARN-CONFIG] "+field+": duplicate key (case-insensitive), keeping first", "key", key, "kept", first)
			continue
		}
		value := entries[rawKey]
		if stripped := strings.ReplaceAll(value, "\x00", ""); stripped != value {
			slog.Warn("[WARN-CONFIG] "+field+": stripped null bytes from value", "key", key)
			value = stripped
		}
		value = strings.TrimSpace(value)
		if len(value) > maxEnvValueBytes {
			slog.Warn("[WARN-CONFIG] "+field+": value exceeds recommended limit", "key", key, "bytes", len(value), "limit", maxEnvValueBytes)
		}
		kept[strings.ToUpper(key)] = key
		cleaned[key] = value
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

type rawPrecheckProbe struct {
	PrecheckInstalled *bool `yaml:"precheck_installed"`
}

// probeRawPrecheckInstalled reports whether raw sets precheck_installed
// explicitly, so a missing key keeps the default of true.
func probeRawPrecheckInstalled(raw []byte) (bool, error) {
	var probe rawPrecheckProbe
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return false, err
	}
	return probe.PrecheckInstalled != nil, nil
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

// renameFileWithRetry renames with a linear backoff on Windows, where
// antivirus and indexers briefly hold the target open.
func renameFileWithRetry(sourcePath string, targetPath string) error {
	err := os.Rename(sourcePath, targetPath)
	for attempt := 1; err != nil && goosFn() == "windows" && attempt < maxRenameRetry; attempt++ {
		time.Sleep(time.Duration(attempt) * renameRetryBaseDelay)
		err = os.Rename(sourcePath, targetPath)
	}
	return err
}
