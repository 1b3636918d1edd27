// Package session tracks per-session state: bounded audit history,
// elevation grants and the per-session execution lock.
package session

import (
	"sync"
	"time"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// DefaultHistoryLimit bounds the per-session audit reference ring.
const DefaultHistoryLimit = 50

type state struct {
	mu             sync.Mutex
	recent         []domain.AuditRef
	elevationUntil time.Time

	// execMu serializes execution within the session so audit ordering and
	// state updates stay consistent. Independent sessions never contend.
	execMu sync.Mutex
}

// Manager owns all sessions. Safe for concurrent use; sessions are created
// lazily on first touch.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*state
	historyLimit int
	now          func() time.Time
}

// NewManager builds a Manager with the given history bound.
func NewManager(historyLimit int) *Manager {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Manager{
		sessions:     map[string]*state{},
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

func (m *Manager) get(id string) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		s = &state{}
		m.sessions[id] = s
	}
	return s
}

// peek looks a session up without creating it. Read paths use this so
// requests carrying arbitrary session ids cannot grow the map.
func (m *Manager) peek(id string) *state {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Snapshot implements ports.SessionManager.
func (m *Manager) Snapshot(id string) domain.SessionSnapshot {
	snap := domain.SessionSnapshot{ID: id}
	s := m.peek(id)
	if s == nil {
		return snap
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Elevated = m.now().Before(s.elevationUntil)
	return snap
}

// Record appends an audit reference, evicting the oldest past the bound.
func (m *Manager) Record(id string, ref domain.AuditRef) {
	s := m.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, ref)
	if len(s.recent) > m.historyLimit {
		s.recent = s.recent[len(s.recent)-m.historyLimit:]
	}
}

// Recent returns up to n references, newest first.
func (m *Manager) Recent(id string, n int) []domain.AuditRef {
	s := m.peek(id)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.recent) {
		n = len(s.recent)
	}
	out := make([]domain.AuditRef, 0, n)
	for i := len(s.recent) - 1; i >= len(s.recent)-n; i-- {
		out = append(out, s.recent[i])
	}
	return out
}

// GrantElevation opens the session's elevation window. The grant expires
// after ttl; a later request must re-elevate.
func (m *Manager) GrantElevation(id string, ttl time.Duration) {
	s := m.get(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elevationUntil = m.now().Add(ttl)
}

// Acquire takes the session's execution lock. No two commands run
// concurrently in the same session.
func (m *Manager) Acquire(id string) func() {
	s := m.get(id)
	s.execMu.Lock()
	return s.execMu.Unlock
}

// Close resets and forgets the session.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

var _ ports.SessionManager = (*Manager)(nil)
