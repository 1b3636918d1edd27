// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// These interfaces are the contract between the application core and the
// infrastructure adapters. The pipeline depends on abstractions defined here,
// never on concrete stores, backends or CLI frameworks, which keeps every
// stage substitutable in tests.
package ports

import (
	"context"
	"time"

	"github.com/doeshing/cmdgate/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.cmdgate/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// Normalizer canonicalizes a raw command string for matching purposes.
// Normalization is pure and deterministic; the original text is still what
// executes.
type Normalizer interface {
	Normalize(raw string) string
}

// Classifier evaluates the loaded rule table against a normalized command.
type Classifier interface {
	Classify(normalized string) (domain.ClassificationResult, error)

	// Rules exposes the effective ordered rule table for inspection.
	Rules() []domain.Rule
}

// PolicyGate maps a classification plus session context onto a decision.
// Implementations are stateless across calls; session mutation happens in
// the caller after the user's actual response is known.
type PolicyGate interface {
	Decide(c domain.ClassificationResult, s domain.SessionSnapshot) domain.PolicyDecision
}

// ExecutionBackend runs a command under one isolation mode.
type ExecutionBackend interface {
	Mode() domain.IsolationMode

	// Available reports whether the backend can be used on this system.
	Available() bool

	// Run executes the request. Timeouts and kills are reported through the
	// result's Termination field, not through the error return.
	Run(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error)
}

// BackendSelector resolves the backend for an isolation mode. Selection never
// silently downgrades: an unavailable backend is surfaced as
// domain.ErrSandboxUnavailable.
type BackendSelector interface {
	For(mode domain.IsolationMode) (ExecutionBackend, error)
}

// AuditLog is the append-only, ordered record of every decision and outcome.
// Append must be internally serialized so sequence numbers stay strictly
// increasing under concurrency.
type AuditLog interface {
	Append(record domain.AuditRecord) error
	Records(sessionID string, limit, offset int) ([]domain.AuditRecord, error)
	LastSequence() (uint64, error)
	Close() error
}

// SequenceSource hands out strictly increasing sequence numbers. It is
// injected into the audit log at construction instead of living in ambient
// global state.
type SequenceSource interface {
	Next() uint64
}

// SessionManager owns all per-session state. Concurrent sessions are fully
// independent; no state is shared between them.
type SessionManager interface {
	// Snapshot returns the read-only view the gate consults.
	Snapshot(id string) domain.SessionSnapshot

	// Record appends an audit reference to the session's bounded history.
	Record(id string, ref domain.AuditRef)

	// Recent returns up to n most recent references, newest first.
	Recent(id string, n int) []domain.AuditRef

	// GrantElevation opens the elevation window for the session.
	GrantElevation(id string, ttl time.Duration)

	// Acquire serializes execution within one session. The returned release
	// function must be called when the execution finishes.
	Acquire(id string) (release func())

	// Close resets and forgets the session.
	Close(id string)
}

// ConfirmationPrompter handles interactive user confirmations for gated
// commands on the CLI surface.
type ConfirmationPrompter interface {
	Confirm(decision domain.PolicyDecision, command string, reasons []string) (bool, error)
	Enabled() bool
}

// Logger provides structured logging abstraction for the application layer.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
