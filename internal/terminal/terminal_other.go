//go:build !linux && !darwin && !windows

package terminal

import "context"

func platformSupports(Terminal) bool { return false }

func (l *Launcher) open(context.Context, Terminal, string, map[string]string) error {
	return ErrNotSupported
}

func isInstalled(context.Context, Terminal) (bool, error) {
	return false, ErrNotSupported
}
