package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"testing"

	"termlaunch/internal/testutil"
)

func newConfigPathForSaveTest(t *testing.T, elems ...string) string {
	t.Helper()
	localAppData := t.TempDir()
	t.Setenv("LOCALAPPDATA", localAppData)
	t.Setenv("APPDATA", "")

	defaultPath := DefaultPath()

	return filepath.Join(filepath.Dir(defaultPath), filepath.Join(elems...))
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestPathWithinDir(t *testing.T) {
	baseDir := t.TempDir()
	configDir := filepath.Join(baseDir, "config")

	tests := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{
			name: "same path",
			path: configDir,
			dir:  configDir,
			want: true,
		},
		{
			name: "subdirectory path",
			path: filepath.Join(configDir, "sub", "config.yaml"),
			dir:  configDir,
			want: true,
		},
		{
			name: "traversal path",
			path: filepath.Join(configDir, "..", "outside.yaml"),
			dir:  configDir,
			want: false,
		},
		{
			name: "different path",
			path: filepath.Join(baseDir, "other", "config.yaml"),
			dir:  configDir,
			want: false,
		},
	}
	if runtime.GOOS == "windows" {
		tests = append(tests, struct {
			name string
			path string
			dir  string
			want bool
		}{
			name: "different drive",
			path: `D:\outside\config.yaml`,
			dir:  `C:\inside`,
			want: false,
		})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pathWithinDir(tt.path, tt.dir)
			if got != tt.want {
				t.Fatalf("pathWithinDir(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DefaultTerminal != string(DefaultTerminalFor(runtime.GOOS)) {
		t.Fatalf("DefaultTerminal = %q, want %q", cfg.DefaultTerminal, DefaultTerminalFor(runtime.GOOS))
	}
	if !cfg.PrecheckInstalled {
		t.Fatal("PrecheckInstalled = false, want true")
	}
	if cfg.HistoryLimit != DefaultHistoryLimit {
		t.Fatalf("HistoryLimit = %d, want %d", cfg.HistoryLimit, DefaultHistoryLimit)
	}
}

func TestDefaultTerminalFor(t *testing.T) {
	tests := map[string]string{
		"windows": "WindowsDefault",
		"darwin":  "AppleTerminal",
		"linux":   "GNOMETerminal",
		"freebsd": "GNOMETerminal",
	}
	for goos, want := range tests {
		if got := string(DefaultTerminalFor(goos)); got != want {
			t.Errorf("DefaultTerminalFor(%q) = %q, want %q", goos, got, want)
		}
	}
}

func TestDefaultPathUsesLocalAppDataWhenAvailable(t *testing.T) {
	t.Setenv("LOCALAPPDATA", `C:\Users\tester\AppData\Local`)
	t.Setenv("APPDATA", "")

	path := DefaultPath()

	want := filepath.Join(`C:\Users\tester\AppData\Local`, "termlaunch", "config.yaml")
	if path != want {
		t.Fatalf("DefaultPath() = %q, want %q", path, want)
	}
}

func TestDefaultPathFallsBackToAppData(t *testing.T) {
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", `C:\Users\tester\AppData\Roaming`)

	path := DefaultPath()

	want := filepath.Join(`C:\Users\tester\AppData\Roaming`, "termlaunch", "config.yaml")
	if path != want {
		t.Fatalf("DefaultPath() = %q, want %q", path, want)
	}
}

func TestDefaultPathFallsBackToHomeConfig(t *testing.T) {
	originalUserHomeDirFn := userHomeDirFn
	t.Cleanup(func() {
		userHomeDirFn = originalUserHomeDirFn
	})
	userHomeDirFn = func() (string, error) { return "/home/tester", nil }
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", "")

	want := filepath.Join("/home/tester", ".config", "termlaunch", "config.yaml")
	if got := DefaultPath(); got != want {
		t.Fatalf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultPathFallsBackToTempDirWhenHomeDirUnavailable(t *testing.T) {
	originalUserHomeDirFn := userHomeDirFn
	originalLogger := slog.Default()
	t.Cleanup(func() {
		userHomeDirFn = originalUserHomeDirFn
		slog.SetDefault(originalLogger)
	})
	ConsumeDefaultPathWarnings()
	t.Cleanup(func() {
		ConsumeDefaultPathWarnings()
	})

	var logBuf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	userHomeDirFn = func() (string, error) {
		return "", errors.New("simulated home dir resolution failure")
	}
	t.Setenv("LOCALAPPDATA", "")
	t.Setenv("APPDATA", "")

	path := DefaultPath()
	want := filepath.Join(os.TempDir(), "termlaunch", "config.yaml")
	if path != want {
		t.Fatalf("DefaultPath() = %q, want %q", path, want)
	}
	if !strings.Contains(logBuf.String(), "using temp dir as config path fallback") {
		t.Fatalf("log output = %q, want temp-dir fallback warning", logBuf.String())
	}
	warnings := ConsumeDefaultPathWarnings()
	if len(warnings) == 0 {
		t.Fatal("ConsumeDefaultPathWarnings() returned no warning for temp-dir fallback")
	}
	if !strings.Contains(warnings[0], "Config path fallback") {
		t.Fatalf("warning = %q, want fallback message", warnings[0])
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("Load(\"\") expected error")
	}
}

func TestLoadEmptyFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "  \n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults", cfg)
	}
}

func TestLoadFields(t *testing.T) {
	workDir := t.TempDir()
	path := writeConfigFile(t, strings.Join([]string{
		"default_terminal: kitty",
		"working_dir: " + workDir,
		"env:",
		"  FOO: bar",
		"precheck_installed: false",
		"history_limit: 50",
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultTerminal != "Kitty" {
		t.Errorf("DefaultTerminal = %q, want canonical Kitty", cfg.DefaultTerminal)
	}
	if cfg.WorkingDir != filepath.Clean(workDir) {
		t.Errorf("WorkingDir = %q, want %q", cfg.WorkingDir, workDir)
	}
	if !reflect.DeepEqual(cfg.Env, map[string]string{"FOO": "bar"}) {
		t.Errorf("Env = %v", cfg.Env)
	}
	if cfg.PrecheckInstalled {
		t.Error("PrecheckInstalled = true, want explicit false preserved")
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("HistoryLimit = %d, want 50", cfg.HistoryLimit)
	}
}

func TestLoadPrecheckDefaultAppliedWhenFieldMissing(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "history_limit: 10\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.PrecheckInstalled {
		t.Fatal("PrecheckInstalled = false, want default true when field missing")
	}
}

func TestLoadRejectsUnknownTerminal(t *testing.T) {
	if _, err := Load(writeConfigFile(t, "default_terminal: xterm\n")); err == nil {
		t.Fatal("Load() expected unknown terminal error")
	}
}

func TestLoadReturnsDefaultsOnParseError(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "default_terminal: [unclosed\n"))
	if err == nil {
		t.Fatal("Load() expected parse error")
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("Load() = %+v, want defaults on parse error", cfg)
	}
}

func TestLoadIgnoresUnknownFields(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "shell: powershell.exe\nhistory_limit: 7\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HistoryLimit != 7 {
		t.Fatalf("HistoryLimit = %d, want 7", cfg.HistoryLimit)
	}
}

func TestValidateHistoryLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultHistoryLimit},
		{in: -5, want: DefaultHistoryLimit},
		{in: 1, want: 1},
		{in: MaxHistoryLimit, want: MaxHistoryLimit},
		{in: MaxHistoryLimit + 1, want: MaxHistoryLimit},
	}
	for _, tt := range tests {
		cfg := Config{HistoryLimit: tt.in}
		validateHistoryLimit(&cfg)
		if cfg.HistoryLimit != tt.want {
			t.Errorf("validateHistoryLimit(%d) = %d, want %d", tt.in, cfg.HistoryLimit, tt.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	originalUserHomeDirFn := userHomeDirFn
	t.Cleanup(func() {
		userHomeDirFn = originalUserHomeDirFn
	})
	home := t.TempDir()
	userHomeDirFn = func() (string, error) { return home, nil }

	if got := normalizePath("", "working_dir"); got != "" {
		t.Fatalf("normalizePath(empty) = %q, want empty", got)
	}
	logBuf := testutil.CaptureLogBuffer(t, slog.LevelWarn)
	if got := normalizePath("relative/dir", "working_dir"); got != "" {
		t.Fatalf("normalizePath(relative) = %q, want empty", got)
	}
	if !strings.Contains(logBuf.String(), "working_dir is not an absolute path") {
		t.Fatalf("expected relative path warning, log = %q", logBuf.String())
	}
	if got, want := normalizePath("~/work", "working_dir"), filepath.Join(home, "work"); got != want {
		t.Fatalf("normalizePath(~/work) = %q, want %q", got, want)
	}
}

func TestNormalizePathExpandsEnvTokens(t *testing.T) {
	base := t.TempDir()
	t.Setenv("TERMLAUNCH_TEST_BASE", base)

	if got, want := normalizePath("%TERMLAUNCH_TEST_BASE%/x", "working_dir"), filepath.Join(base, "x"); got != want {
		t.Fatalf("normalizePath(%%VAR%%) = %q, want %q", got, want)
	}
	if runtime.GOOS != "windows" {
		if got, want := normalizePath("${TERMLAUNCH_TEST_BASE}/y", "working_dir"), filepath.Join(base, "y"); got != want {
			t.Fatalf("normalizePath(${VAR}) = %q, want %q", got, want)
		}
	}
}

func TestSanitizeEnvMap(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]string
		want map[string]string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "valid entries", in: map[string]string{"A": " 1 ", "B": ""}, want: map[string]string{"A": "1", "B": ""}},
		{name: "empty key", in: map[string]string{" ": "x", "OK": "y"}, want: map[string]string{"OK": "y"}},
		{name: "equals in key", in: map[string]string{"A=B": "x"}, want: nil},
		{name: "null byte in key", in: map[string]string{"A\x00": "x"}, want: nil},
		{name: "null byte stripped from value", in: map[string]string{"A": "x\x00y"}, want: map[string]string{"A": "xy"}},
		{name: "case-insensitive duplicate keeps first sorted", in: map[string]string{"foo": "lower", "FOO": "upper"}, want: map[string]string{"FOO": "upper"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeEnvMap(tt.in, "env")
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("sanitizeEnvMap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCloneDeepCopyIndependence(t *testing.T) {
	src := DefaultConfig()
	src.Env = map[string]string{"A": "1"}

	dst := Clone(src)
	dst.Env["A"] = "changed"
	dst.Env["B"] = "2"

	if src.Env["A"] != "1" || len(src.Env) != 1 {
		t.Fatalf("Clone() shares Env map: src.Env = %v", src.Env)
	}
}

func TestClonePreservesNilEnv(t *testing.T) {
	if got := Clone(DefaultConfig()).Env; got != nil {
		t.Fatalf("Clone().Env = %v, want nil", got)
	}
}

func TestSave(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := newConfigPathForSaveTest(t, "config.yaml")
		cfg := DefaultConfig()
		cfg.DefaultTerminal = "Konsole"
		cfg.Env = map[string]string{"MY_VAR": "val"}
		cfg.PrecheckInstalled = false
		cfg.HistoryLimit = 25

		if _, err := Save(path, cfg); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(loaded, cfg) {
			t.Fatalf("Load() = %+v, want %+v", loaded, cfg)
		}
	})

	t.Run("returns normalized config", func(t *testing.T) {
		path := newConfigPathForSaveTest(t, "config.yaml")
		normalized, err := Save(path, Config{})
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		want := DefaultConfig()
		want.PrecheckInstalled = false
		if !reflect.DeepEqual(normalized, want) {
			t.Fatalf("Save() = %+v, want %+v", normalized, want)
		}
	})

	t.Run("keeps precheck disabled on otherwise empty config", func(t *testing.T) {
		path := newConfigPathForSaveTest(t, "config.yaml")
		if _, err := Save(path, Config{PrecheckInstalled: false}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if loaded.PrecheckInstalled {
			t.Fatal("PrecheckInstalled = true after saving false")
		}
		if loaded.DefaultTerminal != DefaultConfig().DefaultTerminal || loaded.HistoryLimit != DefaultHistoryLimit {
			t.Fatalf("Load() = %+v, want per-field defaults", loaded)
		}
	})

	t.Run("rejects path outside config dir", func(t *testing.T) {
		_ = newConfigPathForSaveTest(t, "config.yaml")
		outside := filepath.Join(t.TempDir(), "config.yaml")
		if _, err := Save(outside, DefaultConfig()); err == nil {
			t.Fatal("Save() expected error for path outside config directory")
		}
	})

	t.Run("rejects invalid terminal", func(t *testing.T) {
		path := newConfigPathForSaveTest(t, "config.yaml")
		cfg := DefaultConfig()
		cfg.DefaultTerminal = "nope"
		if _, err := Save(path, cfg); err == nil {
			t.Fatal("Save() expected invalid terminal error")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("Save() wrote file despite validation error: %v", err)
		}
	})

	t.Run("leaves no temp files", func(t *testing.T) {
		path := newConfigPathForSaveTest(t, "config.yaml")
		if _, err := Save(path, DefaultConfig()); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".config.yaml.tmp.*"))
		if len(matches) != 0 {
			t.Fatalf("temp files left behind: %v", matches)
		}
	})
}

func TestValidateConfigPathReturnsErrorWhenDefaultConfigDirResolutionFails(t *testing.T) {
	original := defaultConfigDirFn
	t.Cleanup(func() { defaultConfigDirFn = original })
	defaultConfigDirFn = func() (string, error) {
		return "", errors.New("simulated failure")
	}

	if _, err := validateConfigPath(filepath.Join(t.TempDir(), "config.yaml")); err == nil {
		t.Fatal("validateConfigPath() expected error")
	}
}

func TestEnsureFileCreatesConfigFile(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")

	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Fatalf("EnsureFile() = %+v, want defaults", cfg)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}

func TestEnsureFileUsesExistingConfigFile(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("history_limit: 3\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := EnsureFile(path)
	if err != nil {
		t.Fatalf("EnsureFile() error = %v", err)
	}
	if cfg.HistoryLimit != 3 {
		t.Fatalf("HistoryLimit = %d, want 3", cfg.HistoryLimit)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "history_limit: 3\n" {
		t.Fatalf("EnsureFile() rewrote existing file: %q", raw)
	}
}

func TestReadLimitedFileRejectsTooLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.yaml")
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), 11), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readLimitedFile(path, 10); err == nil {
		t.Fatal("readLimitedFile() expected size error")
	}
}

func TestReadLimitedFileAllowsFileAtExactMaxBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exact.yaml")
	if err := os.WriteFile(path, bytes.Repeat([]byte("a"), 10), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw, err := readLimitedFile(path, 10)
	if err != nil {
		t.Fatalf("readLimitedFile() error = %v", err)
	}
	if len(raw) != 10 {
		t.Fatalf("len(raw) = %d, want 10", len(raw))
	}
}

func TestProbeRawPrecheckInstalled(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{raw: "precheck_installed: false\n", want: true},
		{raw: "precheck_installed: true\n", want: true},
		{raw: "history_limit: 1\n", want: false},
	}
	for _, tt := range tests {
		got, err := probeRawPrecheckInstalled([]byte(tt.raw))
		if err != nil {
			t.Fatalf("probeRawPrecheckInstalled(%q) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("probeRawPrecheckInstalled(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestSaveConcurrentWrites(t *testing.T) {
	path := newConfigPathForSaveTest(t, "config.yaml")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func(limit int) {
			defer wg.Done()
			cfg := DefaultConfig()
			cfg.HistoryLimit = limit
			if _, err := Save(path, cfg); err != nil {
				errs <- err
			}
		}(i + 1)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if runtime.GOOS == "windows" {
			// Rename contention on Windows may exhaust retries.
			continue
		}
		t.Fatalf("Save() concurrent error = %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HistoryLimit < 1 || cfg.HistoryLimit > 8 {
		t.Fatalf("HistoryLimit = %d, want one of the written values", cfg.HistoryLimit)
	}
}
