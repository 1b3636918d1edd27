package domain

import "time"

// AuditRecord is an immutable, sequenced log entry capturing one
// classification-and-execution decision. Records are append-only; the core
// never mutates or deletes them.
type AuditRecord struct {
	Seq            uint64               `json:"seq"`
	Timestamp      time.Time            `json:"timestamp"`
	SessionID      string               `json:"session_id"`
	Command        Command              `json:"command"`
	Classification ClassificationResult `json:"classification"`
	Decision       PolicyDecision       `json:"decision"`

	// Execution is nil for records written at validation time.
	Execution *ExecutionResult `json:"execution,omitempty"`
}

// AuditRef is the lightweight reference retained by a session after the
// full record is handed to the audit log.
type AuditRef struct {
	Seq       uint64
	Timestamp time.Time
	Action    PolicyAction
	Severity  RiskLevel
}

// Ref derives the session-side reference for a record.
func (r AuditRecord) Ref() AuditRef {
	return AuditRef{
		Seq:       r.Seq,
		Timestamp: r.Timestamp,
		Action:    r.Decision.Action,
		Severity:  r.Decision.Severity,
	}
}
