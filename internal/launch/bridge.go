package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"termlaunch/internal/command"
	"termlaunch/internal/shell"
	"termlaunch/internal/terminal"
)

const kubeconfigEnv = "KUBECONFIG"

// Settings are the configured values applied to every launch.
type Settings struct {
	WorkingDir string
	Env        map[string]string
}

// Terminals performs the host calls behind a LocalBridge.
type Terminals interface {
	Open(ctx context.Context, t terminal.Terminal, workingDir, command string, env map[string]string) error
	IsInstalled(ctx context.Context, t terminal.Terminal) (bool, error)
}

// HostTerminals opens terminals on this machine.
type HostTerminals struct{}

func (HostTerminals) Open(ctx context.Context, t terminal.Terminal, workingDir, command string, env map[string]string) error {
	l := &terminal.Launcher{WorkingDir: workingDir}
	return l.Open(ctx, t, command, env)
}

func (HostTerminals) IsInstalled(ctx context.Context, t terminal.Terminal) (bool, error) {
	return terminal.IsInstalled(ctx, t)
}

// LocalBridge is the Bridge shared by the window and the CLI. It resolves
// the terminal name, overlays request variables on the configured ones and
// renders unsupported terminals with the user-facing message.
type LocalBridge struct {
	// Settings is read once per launch. Nil means zero Settings.
	Settings func() Settings
	// Terminals defaults to HostTerminals.
	Terminals Terminals
}

func (b *LocalBridge) Launch(ctx context.Context, req LaunchRequest) error {
	t, err := terminal.Parse(req.Terminal)
	if err != nil {
		return err
	}
	if err := ValidateEnv(req.EnvVars); err != nil {
		return err
	}
	s := b.settings()
	env := mergeEnv(s.Env, req.EnvVars)
	slog.Debug("[DEBUG-LAUNCH] opening terminal", "terminal", t, "command", req.Command, "envCount", len(env))
	return userError(t, b.terminals().Open(ctx, t, s.WorkingDir, req.Command, env))
}

func (b *LocalBridge) IsInstalled(ctx context.Context, name string) (bool, error) {
	t, err := terminal.Parse(name)
	if err != nil {
		return false, err
	}
	installed, err := b.terminals().IsInstalled(ctx, t)
	if err != nil {
		return false, userError(t, err)
	}
	return installed, nil
}

func (b *LocalBridge) settings() Settings {
	if b.Settings == nil {
		return Settings{}
	}
	return b.Settings()
}

func (b *LocalBridge) terminals() Terminals {
	if b.Terminals == nil {
		return HostTerminals{}
	}
	return b.Terminals
}

func userError(t terminal.Terminal, err error) error {
	if errors.Is(err, terminal.ErrNotSupported) {
		return errors.New(terminal.NotSupportedMessage(t))
	}
	return err
}

// mergeEnv overlays request variables on the configured ones.
func mergeEnv(base, overlay map[string]string) map[string]string {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(overlay))
	maps.Copy(out, base)
	maps.Copy(out, overlay)
	return out
}

// ValidateEnv rejects variable names a POSIX shell cannot export.
func ValidateEnv(env map[string]string) error {
	for _, key := range slices.Sorted(maps.Keys(env)) {
		if !shell.IsEnvVarName(key) {
			return fmt.Errorf("invalid environment variable name %q", key)
		}
	}
	return nil
}

// withKubeconfig points kubectl commands at path unless env already sets
// KUBECONFIG. env is not modified.
func withKubeconfig(choice command.Choice, env map[string]string, path string) map[string]string {
	if path == "" || !command.UsesKubectl(choice) {
		return env
	}
	for key := range env {
		if strings.EqualFold(key, kubeconfigEnv) {
			return env
		}
	}
	out := make(map[string]string, len(env)+1)
	maps.Copy(out, env)
	out[kubeconfigEnv] = path
	return out
}
