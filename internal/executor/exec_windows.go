//go:build windows

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcess starts the child in a new process group. Cancellation
// uses the default Process.Kill.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
