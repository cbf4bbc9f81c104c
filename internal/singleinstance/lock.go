// Package singleinstance keeps a second launcher window from starting while
// one is already running for the same user.
package singleinstance

import (
	"errors"

	"termlaunch/internal/userutil"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

const lockBaseName = "termlaunch-"

func lockSuffix() string {
	return userutil.CurrentUsername()
}
