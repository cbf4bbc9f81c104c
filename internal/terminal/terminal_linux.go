//go:build linux

package terminal

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
)

type linuxSpec struct {
	bin  string
	args func(cwd, script string) []string
}

var linuxTerminals = map[Terminal]linuxSpec{
	GNOMETerminal: {bin: "gnome-terminal", args: func(_, script string) []string { return []string{"--", script} }},
	Konsole:       {bin: "konsole", args: func(_, script string) []string { return []string{"-e", script} }},
	Kitty:         {bin: "kitty", args: func(_, script string) []string { return []string{script} }},
	Ghostty:       {bin: "ghostty", args: func(_, script string) []string { return []string{"-e", script} }},
	WezTerm:       {bin: "wezterm", args: func(cwd, script string) []string { return []string{"start", "--cwd", cwd, "--", script} }},
	Warp:          {bin: "warp-terminal", args: nil},
}

func platformSupports(t Terminal) bool {
	_, ok := linuxTerminals[t]
	return ok
}

func (l *Launcher) open(_ context.Context, t Terminal, command string, env map[string]string) error {
	entry := linuxTerminals[t]
	cwd := resolveWorkingDir(l.WorkingDir)

	script, err := l.writeScript(command, env)
	if err != nil {
		return err
	}

	var args []string
	if t == Warp {
		if _, err := writeWarpLaunchConfig(cwd, script); err != nil {
			return err
		}
		args = []string{warpLaunchURI}
	} else {
		args = entry.args(cwd, script)
	}

	cmd := exec.Command(entry.bin, args...)
	cmd.Dir = cwd
	cmd.Env = childEnv(os.Environ(), env, true)
	slog.Debug("[DEBUG-TERMINAL] starting terminal", "terminal", t, "bin", entry.bin, "args", args, "dir", cwd)
	return startDetached(cmd)
}

func isInstalled(_ context.Context, t Terminal) (bool, error) {
	_, err := lookPathFn(linuxTerminals[t].bin)
	return err == nil, nil
}
