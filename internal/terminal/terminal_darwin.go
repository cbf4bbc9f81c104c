//go:build darwin

package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
)

type macApp struct {
	// openName is passed to `open -a`.
	openName string
	// bundleName is looked up by osascript.
	bundleName string
}

var macTerminals = map[Terminal]macApp{
	AppleTerminal: {openName: "terminal", bundleName: "Terminal"},
	ITerm2:        {openName: "iterm", bundleName: "iTerm"},
	Warp:          {openName: "warp", bundleName: "Warp"},
	Ghostty:       {openName: "ghostty", bundleName: "Ghostty"},
	Kitty:         {openName: "kitty", bundleName: "Kitty"},
	WezTerm:       {openName: "wezterm", bundleName: "WezTerm"},
}

func platformSupports(t Terminal) bool {
	_, ok := macTerminals[t]
	return ok
}

func (l *Launcher) open(_ context.Context, t Terminal, command string, env map[string]string) error {
	app := macTerminals[t]
	cwd := resolveWorkingDir(l.WorkingDir)

	script, err := l.writeScript(command, env)
	if err != nil {
		return err
	}

	var args []string
	if t == WezTerm {
		args = []string{"-na", app.openName, "--args", "start", "--", script}
	} else {
		args = []string{"-a", app.openName, script}
	}

	cmd := exec.Command("open", args...)
	cmd.Dir = cwd
	cmd.Env = childEnv(os.Environ(), env, false)
	slog.Debug("[DEBUG-TERMINAL] starting terminal", "terminal", t, "args", args)
	return startDetached(cmd)
}

func isInstalled(ctx context.Context, t Terminal) (bool, error) {
	app := macTerminals[t]
	cmd := exec.CommandContext(ctx, "osascript", "-e", fmt.Sprintf("id of application %q", app.bundleName))
	err := runCommandFn(cmd)
	if err == nil {
		return true, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}
	return false, fmt.Errorf("probe %s: %w", app.bundleName, err)
}
