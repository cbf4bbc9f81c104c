//go:build linux

package terminal

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// Do not use t.Parallel(): these tests override package-level seams.
func stubStart(t *testing.T) *[]*exec.Cmd {
	t.Helper()
	var started []*exec.Cmd
	orig := startCommandFn
	startCommandFn = func(cmd *exec.Cmd) error {
		started = append(started, cmd)
		return nil
	}
	t.Cleanup(func() { startCommandFn = orig })
	return &started
}

func TestOpenLinuxTerminalArgs(t *testing.T) {
	workDir := t.TempDir()
	tests := []struct {
		term     Terminal
		bin      string
		wantArgs func(script string) []string
	}{
		{term: GNOMETerminal, bin: "gnome-terminal", wantArgs: func(s string) []string { return []string{"--", s} }},
		{term: Konsole, bin: "konsole", wantArgs: func(s string) []string { return []string{"-e", s} }},
		{term: Kitty, bin: "kitty", wantArgs: func(s string) []string { return []string{s} }},
		{term: Ghostty, bin: "ghostty", wantArgs: func(s string) []string { return []string{"-e", s} }},
		{term: WezTerm, bin: "wezterm", wantArgs: func(s string) []string { return []string{"start", "--cwd", workDir, "--", s} }},
	}

	for _, tt := range tests {
		t.Run(string(tt.term), func(t *testing.T) {
			started := stubStart(t)
			scriptDir := t.TempDir()
			l := &Launcher{WorkingDir: workDir, ScriptDir: scriptDir}

			if err := l.Open(context.Background(), tt.term, "ls -la", map[string]string{"FOO": "bar"}); err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if len(*started) != 1 {
				t.Fatalf("started = %d, want 1", len(*started))
			}
			cmd := (*started)[0]

			scripts, _ := filepath.Glob(filepath.Join(scriptDir, scriptPrefix+"*"))
			if len(scripts) != 1 {
				t.Fatalf("scripts = %v, want exactly one", scripts)
			}
			wantArgv := append([]string{tt.bin}, tt.wantArgs(scripts[0])...)
			if !slices.Equal(cmd.Args, wantArgv) {
				t.Fatalf("cmd.Args = %q, want %q", cmd.Args, wantArgv)
			}
			if cmd.Dir != workDir {
				t.Fatalf("cmd.Dir = %q, want %q", cmd.Dir, workDir)
			}
			if !slices.Contains(cmd.Env, "FOO=bar") {
				t.Fatal("cmd.Env missing FOO=bar")
			}

			data, err := os.ReadFile(scripts[0])
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if !strings.Contains(string(data), "export FOO=bar\nls -la\nexec $SHELL") {
				t.Fatalf("script = %q", data)
			}
		})
	}
}

func TestOpenWarpWritesLaunchConfig(t *testing.T) {
	started := stubStart(t)
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	l := &Launcher{WorkingDir: t.TempDir(), ScriptDir: t.TempDir()}
	if err := l.Open(context.Background(), Warp, "", nil); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	cmd := (*started)[0]
	if want := []string{"warp-terminal", warpLaunchURI}; !slices.Equal(cmd.Args, want) {
		t.Fatalf("cmd.Args = %q, want %q", cmd.Args, want)
	}
	if _, err := os.Stat(filepath.Join(dataHome, "warp-terminal", "launch_configurations", warpConfigName)); err != nil {
		t.Fatalf("launch config not written: %v", err)
	}
}

func TestOpenScrubsAppImageVars(t *testing.T) {
	started := stubStart(t)
	t.Setenv("APPIMAGE", "/opt/termlaunch.AppImage")
	t.Setenv("PYTHONHOME", "/tmp/.mount/usr")

	l := &Launcher{ScriptDir: t.TempDir()}
	if err := l.Open(context.Background(), Kitty, "", nil); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for _, entry := range (*started)[0].Env {
		if strings.HasPrefix(entry, "PYTHONHOME=") {
			t.Fatalf("cmd.Env kept %q", entry)
		}
	}
}

func TestOpenStartFailure(t *testing.T) {
	orig := startCommandFn
	startCommandFn = func(*exec.Cmd) error { return errors.New("exec: not found") }
	t.Cleanup(func() { startCommandFn = orig })

	l := &Launcher{ScriptDir: t.TempDir()}
	err := l.Open(context.Background(), Konsole, "", nil)
	if err == nil || !strings.Contains(err.Error(), "exec: not found") {
		t.Fatalf("Open() error = %v, want start failure", err)
	}
}

func TestIsInstalledLinux(t *testing.T) {
	orig := lookPathFn
	t.Cleanup(func() { lookPathFn = orig })

	var looked []string
	lookPathFn = func(name string) (string, error) {
		looked = append(looked, name)
		if name == "kitty" {
			return "/usr/bin/kitty", nil
		}
		return "", exec.ErrNotFound
	}

	got, err := IsInstalled(context.Background(), Kitty)
	if err != nil || !got {
		t.Fatalf("IsInstalled(Kitty) = %v, %v, want true, nil", got, err)
	}
	got, err = IsInstalled(context.Background(), Warp)
	if err != nil || got {
		t.Fatalf("IsInstalled(Warp) = %v, %v, want false, nil", got, err)
	}
	if !slices.Equal(looked, []string{"kitty", "warp-terminal"}) {
		t.Fatalf("looked up = %q", looked)
	}
}

func TestLinuxRejectsMacAndWindowsTerminals(t *testing.T) {
	for _, term := range []Terminal{AppleTerminal, ITerm2, WindowsDefault, WSL} {
		if platformSupports(term) {
			t.Fatalf("platformSupports(%s) = true on linux", term)
		}
	}
}
