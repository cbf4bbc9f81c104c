// Package terminal opens external terminal emulators and probes whether they
// are installed. Each supported operating system has its own set of
// terminals; asking for one that the host OS does not know returns
// ErrNotSupported.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"slices"
	"strings"

	"termlaunch/internal/procutil"
)

// Terminal identifies a terminal emulator.
type Terminal string

const (
	AppleTerminal  Terminal = "AppleTerminal"
	ITerm2         Terminal = "ITerm2"
	Warp           Terminal = "Warp"
	WezTerm        Terminal = "WezTerm"
	Ghostty        Terminal = "Ghostty"
	Kitty          Terminal = "Kitty"
	WindowsDefault Terminal = "WindowsDefault"
	WSL            Terminal = "WSL"
	GNOMETerminal  Terminal = "GNOMETerminal"
	Konsole        Terminal = "Konsole"
)

var allTerminals = []Terminal{
	AppleTerminal,
	ITerm2,
	Warp,
	WezTerm,
	Ghostty,
	Kitty,
	WindowsDefault,
	WSL,
	GNOMETerminal,
	Konsole,
}

var (
	// ErrNotSupported is returned for a terminal the host OS cannot launch.
	ErrNotSupported = errors.New("terminal is not supported on this OS")
	// ErrUnknownTerminal is returned by Parse for an unrecognized name.
	ErrUnknownTerminal = errors.New("unknown terminal")
)

// Package-level seams swapped in tests.
var (
	lookPathFn     = exec.LookPath
	startCommandFn = func(cmd *exec.Cmd) error { return cmd.Start() }
	runCommandFn   = func(cmd *exec.Cmd) error { return cmd.Run() }
)

// All returns every known terminal identifier.
func All() []Terminal {
	return slices.Clone(allTerminals)
}

// Supported returns the terminals the host OS can launch.
func Supported() []Terminal {
	out := make([]Terminal, 0, len(allTerminals))
	for _, t := range allTerminals {
		if platformSupports(t) {
			out = append(out, t)
		}
	}
	return out
}

// Parse resolves name to a Terminal. Matching ignores case and surrounding space.
func Parse(name string) (Terminal, error) {
	trimmed := strings.TrimSpace(name)
	for _, t := range allTerminals {
		if strings.EqualFold(string(t), trimmed) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTerminal, name)
}

func (t Terminal) String() string {
	return string(t)
}

// NotSupportedMessage is the user-facing text for ErrNotSupported.
func NotSupportedMessage(t Terminal) string {
	return fmt.Sprintf("Terminal %s is not supported on this OS", t)
}

// Launcher opens terminals. The zero value is ready to use.
type Launcher struct {
	// WorkingDir is the preferred working directory of the new terminal.
	// Empty or missing directories fall back to the home directory, then the temp dir.
	WorkingDir string
	// ScriptDir holds generated launch scripts. Empty means the temp dir.
	ScriptDir string
}

// Open launches t running command with env exported on top of the current
// environment. An empty command opens the user's shell.
func (l *Launcher) Open(ctx context.Context, t Terminal, command string, env map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !platformSupports(t) {
		return fmt.Errorf("open %s: %w", t, ErrNotSupported)
	}
	if err := l.open(ctx, t, command, env); err != nil {
		return fmt.Errorf("open %s: %w", t, err)
	}
	return nil
}

// IsInstalled reports whether t is present on this machine.
func (l *Launcher) IsInstalled(ctx context.Context, t Terminal) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !platformSupports(t) {
		return false, fmt.Errorf("check %s: %w", t, ErrNotSupported)
	}
	return isInstalled(ctx, t)
}

// IsInstalled probes t with the zero Launcher.
func IsInstalled(ctx context.Context, t Terminal) (bool, error) {
	var l Launcher
	return l.IsInstalled(ctx, t)
}

// startDetached starts cmd and reaps it in the background. The terminal
// process outlives the request that started it.
func startDetached(cmd *exec.Cmd) error {
	procutil.Detach(cmd)
	if err := startCommandFn(cmd); err != nil {
		return err
	}
	if cmd.Process != nil {
		go func() {
			_ = cmd.Wait()
		}()
	}
	return nil
}
