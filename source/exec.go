package source

import (
	"context"
	"os/exec"
)

// runCmd builds a context-cancellable subprocess: on ctx cancellation
// the exec package sends SIGKILL to the process, which is sufficient
// here since git subprocesses don't need a graceful SIGTERM first
// (unlike the build orchestrator's long-running toolchain invocations
// in buildrun, which do).
func runCmd(ctx context.Context, dir string, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	return cmd
}
