// Package procutil adjusts exec.Cmd process attributes for launched
// terminals: HideWindow suppresses the console flash of helper processes on
// Windows, and Detach lets a terminal outlive the launcher.
package procutil
