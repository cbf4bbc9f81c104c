//go:build windows

package singleinstance

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// Lock owns a named mutex. Windows abandons the mutex if the process dies, so
// a crashed launcher never blocks the next start.
type Lock struct {
	mutex windows.Handle
}

// TryLock creates and takes ownership of the mutex called name. An existing
// mutex means another launcher owns it.
func TryLock(name string) (*Lock, error) {
	if name == "" {
		return nil, errors.New("lock name is required")
	}
	utf16Name, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("lock name %q: %w", name, err)
	}

	mutex, err := windows.CreateMutex(nil, true, utf16Name)
	if err == nil {
		return &Lock{mutex: mutex}, nil
	}
	if mutex != 0 {
		_ = windows.CloseHandle(mutex)
	}
	if errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		return nil, ErrAlreadyRunning
	}
	return nil, fmt.Errorf("create mutex %q: %w", name, err)
}

// Release gives up ownership and closes the handle. Safe on a nil receiver
// and idempotent.
func (l *Lock) Release() error {
	if l == nil || l.mutex == 0 {
		return nil
	}
	mutex := l.mutex
	l.mutex = 0
	return errors.Join(windows.ReleaseMutex(mutex), windows.CloseHandle(mutex))
}

// DefaultName returns the mutex name for the current user. The Local
// namespace scopes it to the login session.
func DefaultName() string {
	return `Local\` + lockBaseName + lockSuffix()
}
