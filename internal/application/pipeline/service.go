// Package pipeline orchestrates the validate → confirm → execute lifecycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// Service wires the pipeline stages together. Classification is synchronous
// and fast; execution happens on the caller's goroutine but is serialized
// per session and cancellable through the context.
type Service struct {
	Config     ports.ConfigProvider
	Normalizer ports.Normalizer
	Classifier ports.Classifier
	Gate       ports.PolicyGate
	Backends   ports.BackendSelector
	Audit      ports.AuditLog
	Sequence   ports.SequenceSource
	Sessions   ports.SessionManager
	Logger     ports.Logger

	mu     sync.Mutex
	tokens map[string]*pendingDecision
}

// pendingDecision holds a validated command awaiting confirmation and
// execution. Tokens are single-use and expire.
type pendingDecision struct {
	token          string
	sessionID      string
	command        domain.Command
	classification domain.ClassificationResult
	decision       domain.PolicyDecision
	expires        time.Time
	confirmed      bool
}

// ValidateRequest carries one candidate command into the pipeline.
type ValidateRequest struct {
	SessionID string
	Input     domain.TranslationInput
	Origin    domain.CommandOrigin
}

// ValidateResponse reports the classification and gate outcome. Token is
// empty when the decision is a deny.
type ValidateResponse struct {
	Command        domain.Command              `json:"command"`
	Classification domain.ClassificationResult `json:"classification"`
	Decision       domain.PolicyDecision       `json:"decision"`
	Token          string                      `json:"token,omitempty"`

	// AuditGap carries the audit write failure, if any. The decision stands
	// regardless; the gap is surfaced so the caller can alarm on it.
	AuditGap string `json:"audit_gap,omitempty"`
}

// ExecuteResponse reports one execution outcome.
type ExecuteResponse struct {
	Result   domain.ExecutionResult `json:"result"`
	AuditGap string                 `json:"audit_gap,omitempty"`
}

func (s *Service) deps() error {
	if s.Config == nil || s.Normalizer == nil || s.Classifier == nil || s.Gate == nil ||
		s.Backends == nil || s.Audit == nil || s.Sequence == nil || s.Sessions == nil || s.Logger == nil {
		return errors.New("pipeline.Service dependencies not satisfied")
	}
	return nil
}

// Validate normalizes, classifies and gates a candidate command without
// executing anything. Every call is audited.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResponse, error) {
	if err := s.deps(); err != nil {
		return ValidateResponse{}, err
	}
	cfg, err := s.Config.Load(ctx)
	if err != nil {
		return ValidateResponse{}, fmt.Errorf("load config: %w", err)
	}

	origin := req.Origin
	if origin == "" {
		origin = domain.OriginTranslated
	}
	cmd := domain.Command{
		Raw:        req.Input.RawCommand,
		Normalized: s.Normalizer.Normalize(req.Input.RawCommand),
		Origin:     origin,
		CreatedAt:  time.Now(),
	}

	classification, err := s.Classifier.Classify(cmd.Normalized)
	if err != nil {
		// Classification failures are recovered locally: match the literal
		// string rather than failing the request.
		s.Logger.Warn("classification fell back to literal matching", map[string]interface{}{
			"error": err.Error(),
		})
		classification, err = s.Classifier.Classify(cmd.Raw)
		if err != nil {
			return ValidateResponse{}, fmt.Errorf("classify: %w", err)
		}
	}

	decision := s.Gate.Decide(classification, s.Sessions.Snapshot(req.SessionID))

	resp := ValidateResponse{
		Command:        cmd,
		Classification: classification,
		Decision:       decision,
	}

	record := domain.AuditRecord{
		Seq:            s.Sequence.Next(),
		Timestamp:      time.Now(),
		SessionID:      req.SessionID,
		Command:        cmd,
		Classification: classification,
		Decision:       decision,
	}
	resp.AuditGap = s.appendAudit(record)
	s.Sessions.Record(req.SessionID, record.Ref())

	if decision.Action != domain.ActionDeny {
		resp.Token = s.issueToken(req.SessionID, cmd, classification, decision, cfg)
	}

	s.Logger.Info("command validated", map[string]interface{}{
		"session":  req.SessionID,
		"severity": string(classification.Severity),
		"action":   string(decision.Action),
		"rule":     decision.RuleID,
	})
	return resp, nil
}

// Confirm records the user's actual response for a pending decision. Session
// state is only mutated here, after the response is known, never inside the
// gate.
func (s *Service) Confirm(token string, approved bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tokens[token]
	if !ok {
		return domain.ErrTokenUnknown
	}
	if time.Now().After(p.expires) {
		delete(s.tokens, token)
		return domain.ErrTokenExpired
	}
	if !approved {
		delete(s.tokens, token)
		return nil
	}
	p.confirmed = true
	return nil
}

// GrantElevation opens the session's elevation window using the configured
// ttl.
func (s *Service) GrantElevation(ctx context.Context, sessionID string) error {
	cfg, err := s.Config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ttl := time.Duration(cfg.Session.ElevationTTLSeconds) * time.Second
	s.Sessions.GrantElevation(sessionID, ttl)
	return nil
}

// Execute runs a previously validated command identified by its decision
// token. Tokens are single-use. The executor never downgrades isolation: an
// unavailable backend aborts with domain.ErrSandboxUnavailable.
func (s *Service) Execute(ctx context.Context, token string) (ExecuteResponse, error) {
	if err := s.deps(); err != nil {
		return ExecuteResponse{}, err
	}
	cfg, err := s.Config.Load(ctx)
	if err != nil {
		return ExecuteResponse{}, fmt.Errorf("load config: %w", err)
	}

	p, err := s.takeToken(token)
	if err != nil {
		return ExecuteResponse{}, err
	}

	switch p.decision.Action {
	case domain.ActionDeny:
		return ExecuteResponse{}, &domain.DeniedError{Decision: p.decision}
	case domain.ActionConfirm:
		if !p.confirmed {
			return ExecuteResponse{}, domain.ErrConfirmationRequired
		}
	case domain.ActionElevate:
		// Elevated execution always also requires an explicit confirm.
		if !p.confirmed {
			return ExecuteResponse{}, domain.ErrConfirmationRequired
		}
		if !s.Sessions.Snapshot(p.sessionID).Elevated {
			return ExecuteResponse{}, domain.ErrElevationRequired
		}
	}

	release := s.Sessions.Acquire(p.sessionID)
	defer release()

	severity := p.classification.Severity
	isolation := pickIsolation(severity, cfg.Execution)
	backend, err := s.Backends.For(isolation)
	if err != nil {
		// An aborted execution attempt is still an outcome and belongs in
		// the trail.
		result := domain.ExecutionResult{
			ExitCode:    -1,
			Termination: domain.TerminationUnavailable,
			Isolation:   isolation,
		}
		gap := s.recordExecution(p, result)
		return ExecuteResponse{Result: result, AuditGap: gap}, err
	}

	limits := cfg.Limits.For(severity)
	execReq := domain.ExecutionRequest{
		Command:   p.command.Raw,
		Isolation: isolation,
		Timeout:   time.Duration(limits.TimeoutSeconds) * time.Second,
		Limits: domain.ResourceLimits{
			CPUSeconds: limits.CPUSeconds,
			MemoryMB:   limits.MemoryMB,
		},
		WorkingDir:     cfg.Execution.WorkingDir,
		DisableNetwork: domain.MoreSevere(severity, domain.RiskMedium),
	}

	result, err := backend.Run(ctx, execReq)
	if err != nil {
		if result.Termination == "" {
			result.Termination = domain.TerminationUnavailable
			result.ExitCode = -1
		}
		if result.Isolation == "" {
			result.Isolation = isolation
		}
		gap := s.recordExecution(p, result)
		return ExecuteResponse{Result: result, AuditGap: gap}, err
	}

	resp := ExecuteResponse{Result: result, AuditGap: s.recordExecution(p, result)}

	s.Logger.Info("command executed", map[string]interface{}{
		"session":     p.sessionID,
		"isolation":   string(isolation),
		"termination": string(result.Termination),
		"exit_code":   result.ExitCode,
	})
	return resp, nil
}

// AuditRecords exposes the paginated audit trail, read-only.
func (s *Service) AuditRecords(sessionID string, limit, offset int) ([]domain.AuditRecord, error) {
	return s.Audit.Records(sessionID, limit, offset)
}

// CloseSession resets per-session state.
func (s *Service) CloseSession(sessionID string) {
	s.Sessions.Close(sessionID)
}

// recordExecution audits one execution outcome, successful or aborted, and
// links it into the session history. Returns the audit gap, if any.
func (s *Service) recordExecution(p *pendingDecision, result domain.ExecutionResult) string {
	record := domain.AuditRecord{
		Seq:            s.Sequence.Next(),
		Timestamp:      time.Now(),
		SessionID:      p.sessionID,
		Command:        p.command,
		Classification: p.classification,
		Decision:       p.decision,
		Execution:      &result,
	}
	gap := s.appendAudit(record)
	s.Sessions.Record(p.sessionID, record.Ref())
	return gap
}

// appendAudit writes the record and converts a failure into a logged,
// surfaced gap. The decision or execution it describes already happened and
// is never rolled back.
func (s *Service) appendAudit(record domain.AuditRecord) string {
	if err := s.Audit.Append(record); err != nil {
		s.Logger.Error("audit write failed", err, map[string]interface{}{
			"seq":     record.Seq,
			"session": record.SessionID,
		})
		return err.Error()
	}
	return ""
}

func (s *Service) issueToken(sessionID string, cmd domain.Command, c domain.ClassificationResult, d domain.PolicyDecision, cfg domain.Config) string {
	token := uuid.NewString()
	ttl := time.Duration(cfg.Session.TokenTTLSeconds) * time.Second
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		s.tokens = map[string]*pendingDecision{}
	}
	s.sweepLocked()
	s.tokens[token] = &pendingDecision{
		token:          token,
		sessionID:      sessionID,
		command:        cmd,
		classification: c,
		decision:       d,
		expires:        time.Now().Add(ttl),
		confirmed:      d.Action == domain.ActionAllow,
	}
	return token
}

func (s *Service) takeToken(token string) (*pendingDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrTokenUnknown
	}
	delete(s.tokens, token)
	if time.Now().After(p.expires) {
		return nil, domain.ErrTokenExpired
	}
	return p, nil
}

func (s *Service) sweepLocked() {
	now := time.Now()
	for token, p := range s.tokens {
		if now.After(p.expires) {
			delete(s.tokens, token)
		}
	}
}

// pickIsolation maps severity onto an isolation mode. The "none" mode is
// only ever used for safe/low severities and only when the deployment has
// explicitly opted in; everything else runs at least restricted.
func pickIsolation(severity domain.RiskLevel, exec domain.ExecutionSettings) domain.IsolationMode {
	mode := domain.ParseIsolationMode(exec.DefaultIsolation)
	if mode == domain.IsolationNone {
		direct := exec.AllowDirect &&
			(severity == domain.RiskSafe || severity == domain.RiskLow)
		if !direct {
			mode = domain.IsolationRestricted
		}
	}
	if severity == domain.RiskCritical && mode != domain.IsolationContainer {
		// A critical command that survived the gate gets the strongest
		// containment configured on this host.
		mode = domain.IsolationContainer
	}
	return mode
}
