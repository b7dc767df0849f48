//go:build unix

package engine

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup makes the child the leader of its own process group so
// that the whole tree can be signaled at once.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// signalProcessGroup delivers SIGTERM (or SIGKILL when force is set) to the
// child's process group, falling back to the child process itself when the
// group is gone.
func signalProcessGroup(cmd *exec.Cmd, force bool) {
	if cmd.Process == nil {
		return
	}

	sig := unix.SIGTERM
	if force {
		sig = unix.SIGKILL
	}

	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err == nil && pgid > 0 {
		if unix.Kill(-pgid, sig) == nil {
			return
		}
	}
	cmd.Process.Signal(sig)
}
