package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the pipeline.
var (
	// ErrEmptyCommand indicates an empty or whitespace-only candidate command.
	ErrEmptyCommand = errors.New("cmdgate: empty command")

	// ErrPolicyDenied indicates the gate refused execution. This is an
	// expected outcome, not an exceptional condition.
	ErrPolicyDenied = errors.New("cmdgate: denied by policy")

	// ErrSandboxUnavailable indicates the requested isolation mode's backend
	// cannot be reached. The executor never downgrades isolation on its own.
	ErrSandboxUnavailable = errors.New("cmdgate: sandbox backend unavailable")

	// ErrAuditWrite indicates a record could not be durably stored. The
	// execution decision itself is never rolled back by this.
	ErrAuditWrite = errors.New("cmdgate: audit write failed")

	// ErrTokenUnknown indicates an execute call referenced no known decision.
	ErrTokenUnknown = errors.New("cmdgate: unknown decision token")

	// ErrTokenExpired indicates a decision token outlived its ttl.
	ErrTokenExpired = errors.New("cmdgate: decision token expired")

	// ErrConfirmationRequired indicates execution was attempted before the
	// user's approval was supplied.
	ErrConfirmationRequired = errors.New("cmdgate: confirmation required")

	// ErrElevationRequired indicates the session holds no (unexpired)
	// elevation grant for an elevate-gated command.
	ErrElevationRequired = errors.New("cmdgate: elevation required")
)

// DeniedError carries the gate's reasoning alongside ErrPolicyDenied.
type DeniedError struct {
	Decision PolicyDecision
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPolicyDenied.Error(), e.Decision.Reason)
}

func (e *DeniedError) Unwrap() error {
	return ErrPolicyDenied
}

// SandboxUnavailableError names the backend that could not be reached so the
// caller can decide to retry with a different isolation mode or abort.
type SandboxUnavailableError struct {
	Mode   IsolationMode
	Detail string
}

func (e *SandboxUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s backend: %s", ErrSandboxUnavailable.Error(), e.Mode, e.Detail)
}

func (e *SandboxUnavailableError) Unwrap() error {
	return ErrSandboxUnavailable
}

// AuditWriteError wraps the storage failure behind ErrAuditWrite.
type AuditWriteError struct {
	Seq   uint64
	Cause error
}

func (e *AuditWriteError) Error() string {
	return fmt.Sprintf("%s: record %d: %v", ErrAuditWrite.Error(), e.Seq, e.Cause)
}

func (e *AuditWriteError) Unwrap() error {
	return ErrAuditWrite
}
