//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the child in its own process group and makes
// cancellation kill the whole group, so helpers the pipeline spawns do not
// outlive it.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		// Negative PID signals the process group
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
