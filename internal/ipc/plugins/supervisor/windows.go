//go:build windows

package supervisor

import (
	"os/exec"
	"syscall"
)

// CREATE_NO_WINDOW hides the console window for spawned children by
// default (spec §4.5 "Windows: hide console by default").
const createNoWindow = 0x08000000

func applyWindowsCreationFlags(cmd *exec.Cmd, visibleConsole bool) {
	flags := uint32(createNoWindow)
	if visibleConsole {
		flags = syscall.CREATE_NEW_CONSOLE
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: flags}
}
