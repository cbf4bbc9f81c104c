//go:build windows

package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
	"golang.org/x/sys/windows"
)

const (
	pipePrefix     = `\\.\pipe\termlaunch-`
	pipeBufferSize = 64 * 1024
)

var (
	validPipeName = regexp.MustCompile(`^\\\\\.\\pipe\\[A-Za-z0-9._-]+$`)
	validSID      = regexp.MustCompile(`^S-1(-\d+)+$`)
)

func defaultEndpointFor(username string) string {
	return pipePrefix + username
}

func trustedEndpointFromEnv() (string, bool) {
	v := strings.TrimSpace(os.Getenv(EndpointEnvVar))
	if v == "" || !validPipeName.MatchString(v) {
		return "", false
	}
	return v, true
}

// listenEndpoint opens a named pipe only SYSTEM and the current user can use.
func listenEndpoint(name string) (net.Listener, error) {
	sid, err := currentUserSID()
	if err != nil {
		return nil, err
	}
	return winio.ListenPipe(name, &winio.PipeConfig{
		SecurityDescriptor: "D:P(A;;GA;;;SY)(A;;GA;;;" + sid + ")",
		MessageMode:        false,
		InputBufferSize:    pipeBufferSize,
		OutputBufferSize:   pipeBufferSize,
	})
}

func currentUserSID() (string, error) {
	token := windows.GetCurrentProcessToken()
	tokenUser, err := token.GetTokenUser()
	if err != nil {
		return "", fmt.Errorf("get token user: %w", err)
	}
	sid := tokenUser.User.Sid.String()
	if !validSID.MatchString(sid) {
		return "", fmt.Errorf("unexpected SID format: %q", sid)
	}
	return sid, nil
}

func dialEndpoint(name string, timeout time.Duration) (net.Conn, error) {
	return winio.DialPipe(name, &timeout)
}

// Named pipes vanish with their last handle.
func cleanupEndpoint(string) {}

func isTransportAbsent(err error) bool {
	return errors.Is(err, windows.ERROR_FILE_NOT_FOUND) || errors.Is(err, winio.ErrTimeout)
}
