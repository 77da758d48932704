// Package procgroup starts external tools in their own process group.
//
// A terminal interrupt is delivered to the whole foreground process group.
// Transcoder children started through Set live in a separate group, so the
// daemon alone decides when they stop: cancellation of the command context
// terminates the entire group, never an interrupt from the terminal.
package procgroup

import (
	"os/exec"
	"time"
)

// DefaultGrace is how long a cancelled group gets between SIGTERM and SIGKILL.
const DefaultGrace = 5 * time.Second

// Set configures cmd, which must come from exec.CommandContext, to start in a
// new process group. When cmd's context is
// cancelled the group receives SIGTERM, and after grace the leader is killed.
func Set(cmd *exec.Cmd, grace time.Duration) {
	if cmd == nil {
		return
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	set(cmd)
	cmd.WaitDelay = grace
}
