// Package command turns the launcher UI selection into the shell command that
// is run inside the new terminal.
package command

import (
	"fmt"
	"slices"
	"strings"
)

// Option ids as sent by the UI radio group.
const (
	OptionCustom      = "custom"
	OptionShell       = "shell"
	OptionKubectl     = "kubectl"
	OptionPrintEnv    = "printenv"
	OptionKubectlExec = "kubectl-exec"
)

// scanOrder is the fixed order in which selected options are matched.
// The first selected option wins; nothing selected means DefaultEcho.
var scanOrder = []string{
	OptionCustom,
	OptionShell,
	OptionKubectl,
	OptionPrintEnv,
	OptionKubectlExec,
}

const (
	defaultEchoCommand = "echo 'Hello World'"
	kubectlGetPods     = "kubectl get pods"
	// execShellScript runs inside the pod: banner first, then the best shell available.
	execShellScript = "clear; echo 'Connected. Type exit to close this session.'; (bash || ash || sh)"
)

// Selection is the raw UI state of one launch action.
type Selection struct {
	// Checked lists the option ids whose control is selected.
	Checked    []string `json:"checked"`
	CustomText string   `json:"customText"`
	Namespace  string   `json:"namespace"`
	Pod        string   `json:"pod"`
}

// Choice is the closed set of ways a command string is derived.
type Choice interface {
	isChoice()
	// Name returns the option id the choice corresponds to.
	Name() string
}

// DefaultEcho prints a greeting. It is used when no option is selected.
type DefaultEcho struct{}

// Custom runs the user's free text as is.
type Custom struct {
	Text string
}

// KubectlGetPods lists pods in the current kubectl context.
type KubectlGetPods struct{}

// EmptyShell opens the terminal's shell without a command.
type EmptyShell struct{}

// PrintEnv dumps the environment with the host's native command.
type PrintEnv struct{}

// KubectlExec opens an interactive shell inside Pod in Namespace.
type KubectlExec struct {
	Namespace string
	Pod       string
}

func (DefaultEcho) isChoice()    {}
func (Custom) isChoice()         {}
func (KubectlGetPods) isChoice() {}
func (EmptyShell) isChoice()     {}
func (PrintEnv) isChoice()       {}
func (KubectlExec) isChoice()    {}

func (DefaultEcho) Name() string    { return "echo" }
func (Custom) Name() string         { return OptionCustom }
func (KubectlGetPods) Name() string { return OptionKubectl }
func (EmptyShell) Name() string     { return OptionShell }
func (PrintEnv) Name() string       { return OptionPrintEnv }
func (KubectlExec) Name() string    { return OptionKubectlExec }

// Resolve maps a selection to its Choice by scanning the options in fixed order.
// Free-text fields are carried verbatim.
func Resolve(sel Selection) Choice {
	for _, option := range scanOrder {
		if !slices.Contains(sel.Checked, option) {
			continue
		}
		switch option {
		case OptionCustom:
			return Custom{Text: sel.CustomText}
		case OptionShell:
			return EmptyShell{}
		case OptionKubectl:
			return KubectlGetPods{}
		case OptionPrintEnv:
			return PrintEnv{}
		case OptionKubectlExec:
			return KubectlExec{Namespace: sel.Namespace, Pod: sel.Pod}
		}
	}
	return DefaultEcho{}
}

// Build returns the command string for choice. platform is a GOOS-style
// name ("windows", "darwin", "linux").
//
// Custom text, namespace and pod are interpolated without any escaping.
func Build(choice Choice, platform string) string {
	switch c := choice.(type) {
	case Custom:
		return c.Text
	case EmptyShell:
		return ""
	case KubectlGetPods:
		return kubectlGetPods
	case PrintEnv:
		if IsWindowsFamily(platform) {
			return "set"
		}
		return "printenv"
	case KubectlExec:
		return fmt.Sprintf(`kubectl exec -n %s %s --stdin --tty -- sh -c "%s"`, c.Namespace, c.Pod, execShellScript)
	default:
		return defaultEchoCommand
	}
}

// Assemble is Resolve followed by Build.
func Assemble(sel Selection, platform string) (Choice, string) {
	choice := Resolve(sel)
	return choice, Build(choice, platform)
}

// IsWindowsFamily reports whether platform names a Windows host.
func IsWindowsFamily(platform string) bool {
	p := strings.ToLower(strings.TrimSpace(platform))
	return p == "windows" || strings.HasPrefix(p, "win")
}

// UsesKubectl reports whether the command produced by choice invokes kubectl.
func UsesKubectl(choice Choice) bool {
	switch choice.(type) {
	case KubectlGetPods, KubectlExec:
		return true
	default:
		return false
	}
}
