//go:build windows

package terminal

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"termlaunch/internal/procutil"
	"termlaunch/internal/shell"
)

func platformSupports(t Terminal) bool {
	return t == WindowsDefault || t == WSL
}

func (l *Launcher) open(_ context.Context, t Terminal, command string, env map[string]string) error {
	if t == WSL {
		return l.openWSL(command, env)
	}
	return l.openCmd(command, env)
}

// openCmd runs `cmd.exe /c start cmd /k <args>`. The outer cmd.exe only
// spawns the visible console, so its own window is hidden.
func (l *Launcher) openCmd(command string, env map[string]string) error {
	args, err := shell.Split(command)
	if err != nil {
		return err
	}
	argv := append([]string{"/c", "start", "cmd", "/k"}, args...)

	cmd := exec.Command("cmd.exe", argv...)
	cmd.Dir = resolveWorkingDir(l.WorkingDir)
	cmd.Env = childEnv(os.Environ(), env, false)
	procutil.HideWindow(cmd)
	slog.Debug("[DEBUG-TERMINAL] starting terminal", "terminal", WindowsDefault, "args", argv)
	return startDetached(cmd)
}

// openWSL runs the launch script inside WSL from a Windows Terminal tab.
func (l *Launcher) openWSL(command string, env map[string]string) error {
	script, err := l.writeScript(command, env)
	if err != nil {
		return err
	}

	cmd := exec.Command("wt.exe", "wsl", "--", "./"+filepath.Base(script))
	cmd.Dir = filepath.Dir(script)
	cmd.Env = childEnv(os.Environ(), env, false)
	slog.Debug("[DEBUG-TERMINAL] starting terminal", "terminal", WSL, "script", script)
	return startDetached(cmd)
}

func isInstalled(_ context.Context, t Terminal) (bool, error) {
	if t == WindowsDefault {
		return true, nil
	}
	for _, bin := range []string{"wt.exe", "wsl.exe"} {
		if _, err := lookPathFn(bin); err != nil {
			return false, nil
		}
	}
	return true, nil
}
