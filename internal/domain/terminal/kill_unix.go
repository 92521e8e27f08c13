//go:build !windows

package terminal

import (
	"errors"
	"os/exec"

	"golang.org/x/sys/unix"
)

// terminateProcess kills the shell's whole process group. The pty makes the
// shell a session leader, so its pid is also the group id.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if err == nil || errors.Is(err, unix.ESRCH) {
		return nil
	}
	return cmd.Process.Kill()
}
