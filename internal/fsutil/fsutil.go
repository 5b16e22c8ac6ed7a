// Package fsutil is the external I/O plumbing shared by the rest of
// the tree: subprocess spawning with captured stdout/stderr/exit and
// cancellation, a POSIX-semantics-preserving copy_tree, and fast
// directory enumeration.
package fsutil

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/termie/go-shutil"
)

// RunResult captures a subprocess's captured output and exit state.
type RunResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Run spawns name with args in dir, capturing stdout/stderr
// separately. On ctx cancellation it sends SIGTERM and, if the
// process hasn't exited within grace, SIGKILL — a two-stage
// cancellation exec.CommandContext's SIGKILL-only behavior doesn't
// offer on its own.
func Run(ctx context.Context, dir string, grace time.Duration, name string, args ...string) (RunResult, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return RunResult{}, errors.Wrapf(err, "starting %s", name)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return finishResult(cmd, stdout, stderr, err)
	case <-ctx.Done():
		terminate(cmd, grace, done)
		return RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: -1}, ctx.Err()
	}
}

func terminate(cmd *exec.Cmd, grace time.Duration, done chan error) {
	if cmd.Process == nil {
		return
	}
	cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-done:
	case <-time.After(grace):
		cmd.Process.Kill()
		<-done
	}
}

func finishResult(cmd *exec.Cmd, stdout, stderr bytes.Buffer, err error) (RunResult, error) {
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			return RunResult{}, errors.Wrapf(err, "running %s", cmd.Path)
		}
	}
	return RunResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: code}, nil
}

// CopyTree copies src to dst preserving POSIX metadata via
// termie/go-shutil, falling back to a manual walk-and-copy if the
// underlying filesystem doesn't support the fast path shutil relies
// on (e.g. copy-on-write clone corruption).
func CopyTree(src, dst string) error {
	err := shutil.CopyTree(src, dst, nil)
	if err == nil {
		return nil
	}
	if rmErr := os.RemoveAll(dst); rmErr != nil {
		return errors.Wrapf(err, "copy_tree failed and cleanup also failed: %v", rmErr)
	}
	if fallbackErr := manualCopyTree(src, dst); fallbackErr != nil {
		return errors.Wrapf(fallbackErr, "fallback copy_tree also failed after: %v", err)
	}
	return nil
}
