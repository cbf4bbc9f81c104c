// Package ipc lets a second process talk to the running launcher: a later app
// instance asks it to come to the front, and the CLI can ask it to launch.
// Each connection carries one JSON line request and one JSON line response.
package ipc

import (
	"encoding/json"
	"strings"

	"termlaunch/internal/command"
	"termlaunch/internal/launch"
	"termlaunch/internal/userutil"
)

// Request commands.
const (
	CommandActivateWindow = "activate-window"
	CommandLaunch         = "launch"
)

// EndpointEnvVar overrides the default endpoint when it passes validation.
const EndpointEnvVar = "TERMLAUNCH_IPC"

// Request is one command sent to the running instance.
type Request struct {
	Command   string            `json:"command"`
	Terminal  string            `json:"terminal,omitempty"`
	Selection command.Selection `json:"selection,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
}

// Response is the running instance's answer.
type Response struct {
	ExitCode int             `json:"exit_code"`
	Stdout   string          `json:"stdout,omitempty"`
	Stderr   string          `json:"stderr,omitempty"`
	Outcome  *launch.Outcome `json:"outcome,omitempty"`
}

// CommandExecutor handles a request and returns a response.
type CommandExecutor interface {
	Execute(req Request) Response
}

// ExecutorFunc adapts a function to CommandExecutor.
type ExecutorFunc func(req Request) Response

func (f ExecutorFunc) Execute(req Request) Response { return f(req) }

// ErrorResponse builds a failed response carrying msg on stderr.
func ErrorResponse(msg string) Response {
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	return Response{ExitCode: 1, Stderr: msg}
}

// DefaultEndpoint returns the endpoint to use. A valid TERMLAUNCH_IPC value
// wins; otherwise a per-user default is built.
func DefaultEndpoint() string {
	if v, ok := trustedEndpointFromEnv(); ok {
		return v
	}
	return defaultEndpointFor(userutil.CurrentUsername())
}

func encodeRequest(req Request) ([]byte, error) {
	return json.Marshal(req)
}

func decodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, err
	}
	if req.Env == nil {
		req.Env = map[string]string{}
	}
	return req, nil
}

func encodeResponse(resp Response) ([]byte, error) {
	return json.Marshal(resp)
}

func decodeResponse(raw []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
