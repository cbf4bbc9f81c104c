//go:build !windows

package ipc

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const socketPrefix = "termlaunch-"

func defaultEndpointFor(username string) string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" || !filepath.IsAbs(dir) {
		dir = os.TempDir()
	}
	return filepath.Join(dir, socketPrefix+username+".sock")
}

// trustedEndpointFromEnv accepts only absolute socket paths inside an
// existing directory.
func trustedEndpointFromEnv() (string, bool) {
	v := strings.TrimSpace(os.Getenv(EndpointEnvVar))
	if v == "" || !filepath.IsAbs(v) || !strings.HasSuffix(v, ".sock") {
		return "", false
	}
	info, err := os.Stat(filepath.Dir(v))
	if err != nil || !info.IsDir() {
		return "", false
	}
	return filepath.Clean(v), true
}

func listenEndpoint(path string) (net.Listener, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return listener, nil
}

// removeStaleSocket deletes a leftover socket that no process answers on.
func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	if conn, dialErr := net.DialTimeout("unix", path, 200*time.Millisecond); dialErr == nil {
		conn.Close()
		return fmt.Errorf("%s is in use", path)
	}
	slog.Debug("[DEBUG-IPC] removing stale socket", "path", path)
	return os.Remove(path)
}

func dialEndpoint(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

func cleanupEndpoint(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Debug("[ipc] failed to remove socket", "path", path, "error", err)
	}
}

func isTransportAbsent(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
