//go:build unix

package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/doeshing/cmdgate/internal/domain"
)

// runCommand drives a prepared *exec.Cmd to completion under the request's
// wall-clock timeout. Timeout and external cancellation share this one
// termination path: the whole process group is killed and the reason is
// recorded in the result. Partial output captured up to the kill point is
// still returned.
func runCommand(ctx context.Context, mode domain.IsolationMode, req domain.ExecutionRequest, cmd *exec.Cmd, outputCap int, postStart func(*exec.Cmd) error, onKill func()) (domain.ExecutionResult, error) {
	result := domain.ExecutionResult{
		ExitCode:  -1,
		Isolation: mode,
	}

	// Cancellation is honored before spawning: abort without running.
	if err := ctx.Err(); err != nil {
		result.Termination = terminationFor(err)
		return result, nil
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	stdout := newCapWriter(outputCap)
	stderr := newCapWriter(outputCap)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result.Termination = domain.TerminationUnavailable
		return result, &domain.SandboxUnavailableError{Mode: mode, Detail: err.Error()}
	}
	if postStart != nil {
		if err := postStart(cmd); err != nil {
			killGroup(cmd)
			_ = cmd.Wait()
			result.Duration = time.Since(start)
			result.Termination = domain.TerminationUnavailable
			return result, &domain.SandboxUnavailableError{Mode: mode, Detail: err.Error()}
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	interrupted := false
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		interrupted = true
		killGroup(cmd)
		if onKill != nil {
			onKill()
		}
		waitErr = <-done
	}

	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.Truncated() || stderr.Truncated()

	switch {
	case interrupted:
		result.Termination = terminationFor(ctx.Err())
	case waitErr == nil:
		result.ExitCode = 0
		result.Termination = domain.TerminationCompleted
	default:
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Termination = domain.TerminationCompleted
			if result.ExitCode < 0 {
				// Killed by a signal we did not send.
				result.Termination = domain.TerminationKilled
			}
		} else {
			result.Termination = domain.TerminationKilled
		}
	}
	return result, nil
}

func terminationFor(ctxErr error) domain.TerminationReason {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return domain.TerminationTimeout
	}
	return domain.TerminationKilled
}

// killGroup terminates the whole process group so shell children die with
// the shell.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
