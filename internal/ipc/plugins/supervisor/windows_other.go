//go:build !windows

package supervisor

import "os/exec"

func applyWindowsCreationFlags(cmd *exec.Cmd, visibleConsole bool) {}
