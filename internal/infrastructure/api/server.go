// Package api exposes the pipeline over HTTP for external callers
// (translator front-ends, web layers).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/doeshing/cmdgate/internal/application/doctor"
	"github.com/doeshing/cmdgate/internal/application/pipeline"
	"github.com/doeshing/cmdgate/internal/domain"
)

const maxBodySize = 1 << 20 // 1MB

// Server serves the validate/execute/audit surface.
type Server struct {
	addr     string
	pipeline *pipeline.Service
	doctor   *doctor.Service
	server   *http.Server
}

// NewServer builds the server; Run starts it.
func NewServer(addr string, p *pipeline.Service, d *doctor.Service) *Server {
	return &Server{addr: addr, pipeline: p, doctor: d}
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/validate", s.handleValidate)
	mux.HandleFunc("POST /v1/confirm", s.handleConfirm)
	mux.HandleFunc("POST /v1/execute", s.handleExecute)
	mux.HandleFunc("POST /v1/elevate", s.handleElevate)
	mux.HandleFunc("GET /v1/audit", s.handleAudit)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	return mux
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Executions can legitimately run for minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

type validatePayload struct {
	SessionID     string  `json:"session_id"`
	RawCommand    string  `json:"raw_command"`
	Confidence    float64 `json:"confidence"`
	SourceRequest string  `json:"source_request"`
	Origin        string  `json:"origin,omitempty"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var payload validatePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	resp, err := s.pipeline.Validate(r.Context(), pipeline.ValidateRequest{
		SessionID: payload.SessionID,
		Origin:    domain.CommandOrigin(payload.Origin),
		Input: domain.TranslationInput{
			RawCommand:    payload.RawCommand,
			Confidence:    payload.Confidence,
			SourceRequest: payload.SourceRequest,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type confirmPayload struct {
	Token    string `json:"token"`
	Approved bool   `json:"approved"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var payload confirmPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := s.pipeline.Confirm(payload.Token, payload.Approved); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type executePayload struct {
	Token string `json:"token"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var payload executePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	resp, err := s.pipeline.Execute(r.Context(), payload.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type elevatePayload struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleElevate(w http.ResponseWriter, r *http.Request) {
	var payload elevatePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := s.pipeline.GrantElevation(r.Context(), payload.SessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := intParam(query.Get("limit"), 50)
	offset := intParam(query.Get("offset"), 0)
	records, err := s.pipeline.AuditRecords(query.Get("session"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report, err := s.doctor.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps pipeline errors onto HTTP statuses. Policy denials and
// expired tokens are expected outcomes, not server failures.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrPolicyDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConfirmationRequired), errors.Is(err, domain.ErrElevationRequired):
		status = http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrTokenUnknown):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTokenExpired):
		status = http.StatusGone
	case errors.Is(err, domain.ErrSandboxUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAuditWrite):
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
