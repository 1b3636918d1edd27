// Package sandbox provides the execution backends for the pipeline.
//
// One backend exists per isolation mode (none, restricted-process,
// containerized), selected through the Registry. Backends never downgrade
// isolation on their own: an unavailable backend is reported as a distinct
// error and the caller decides what to do.
package sandbox

import (
	"sync"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// DefaultOutputCap bounds captured stdout/stderr per stream.
const DefaultOutputCap = 64 * 1024

// Registry maps isolation modes onto their backends.
type Registry struct {
	backends map[domain.IsolationMode]ports.ExecutionBackend
}

// NewRegistry builds the standard backend set from execution settings.
func NewRegistry(settings domain.ExecutionSettings, outputCap int) *Registry {
	if outputCap <= 0 {
		outputCap = DefaultOutputCap
	}
	r := &Registry{backends: map[domain.IsolationMode]ports.ExecutionBackend{}}
	r.Register(NewDirectBackend(settings.Shell, outputCap))
	r.Register(NewRestrictedBackend(settings.Shell, outputCap))
	r.Register(NewContainerBackend(ContainerOptions{
		Runtime:   settings.ContainerRuntime,
		Image:     settings.ContainerImage,
		OutputCap: outputCap,
	}))
	return r
}

// Register installs (or replaces) the backend for its mode. Used by tests to
// substitute fakes.
func (r *Registry) Register(b ports.ExecutionBackend) {
	r.backends[b.Mode()] = b
}

// For implements ports.BackendSelector. Unavailability is surfaced, never
// silently worked around.
func (r *Registry) For(mode domain.IsolationMode) (ports.ExecutionBackend, error) {
	b, ok := r.backends[mode]
	if !ok {
		return nil, &domain.SandboxUnavailableError{Mode: mode, Detail: "no backend registered"}
	}
	if !b.Available() {
		return nil, &domain.SandboxUnavailableError{Mode: mode, Detail: "backend not available on this system"}
	}
	return b, nil
}

var _ ports.BackendSelector = (*Registry)(nil)

// capWriter captures output up to a byte cap. Truncation is flagged, never
// silent.
type capWriter struct {
	mu        sync.Mutex
	buf       []byte
	cap       int
	truncated bool
}

func newCapWriter(capBytes int) *capWriter {
	return &capWriter{cap: capBytes}
}

func (w *capWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	remaining := w.cap - len(w.buf)
	if remaining <= 0 {
		w.truncated = true
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf = append(w.buf, p[:remaining]...)
		w.truncated = true
		return len(p), nil
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *capWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}

func (w *capWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
