package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/doeshing/cmdgate/internal/domain"
)

type fakeBackend struct {
	mode      domain.IsolationMode
	available bool
	result    domain.ExecutionResult
	calls     int
}

func (f *fakeBackend) Mode() domain.IsolationMode { return f.mode }
func (f *fakeBackend) Available() bool            { return f.available }
func (f *fakeBackend) Run(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	f.calls++
	return f.result, nil
}

func TestCapWriterUnderCap(t *testing.T) {
	w := newCapWriter(16)
	n, err := w.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write = (%d, %v)", n, err)
	}
	if w.String() != "hello" || w.Truncated() {
		t.Fatalf("got %q truncated=%v", w.String(), w.Truncated())
	}
}

func TestCapWriterTruncates(t *testing.T) {
	w := newCapWriter(8)
	payload := strings.Repeat("x", 20)
	if n, err := w.Write([]byte(payload)); err != nil || n != len(payload) {
		t.Fatalf("Write = (%d, %v), writer must consume the full chunk", n, err)
	}
	if got := w.String(); got != strings.Repeat("x", 8) {
		t.Fatalf("captured %q, want first 8 bytes", got)
	}
	if !w.Truncated() {
		t.Fatal("truncation not flagged")
	}
	// Writes past the cap are swallowed but still acknowledged.
	if n, err := w.Write([]byte("more")); err != nil || n != 4 {
		t.Fatalf("post-cap Write = (%d, %v)", n, err)
	}
}

func TestRegistrySelectsRegisteredBackend(t *testing.T) {
	fake := &fakeBackend{mode: domain.IsolationRestricted, available: true}
	r := NewRegistry(domain.ExecutionSettings{Shell: "/bin/sh"}, 1024)
	r.Register(fake)

	got, err := r.For(domain.IsolationRestricted)
	if err != nil {
		t.Fatalf("For error: %v", err)
	}
	if got != fake {
		t.Fatalf("For returned %T, want the registered fake", got)
	}
}

func TestRegistryUnavailableBackendSurfaced(t *testing.T) {
	fake := &fakeBackend{mode: domain.IsolationContainer, available: false}
	r := NewRegistry(domain.ExecutionSettings{Shell: "/bin/sh"}, 1024)
	r.Register(fake)

	_, err := r.For(domain.IsolationContainer)
	if !errors.Is(err, domain.ErrSandboxUnavailable) {
		t.Fatalf("expected ErrSandboxUnavailable, got %v", err)
	}
	var unavailable *domain.SandboxUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Mode != domain.IsolationContainer {
		t.Fatalf("error does not name the backend: %v", err)
	}
	if fake.calls != 0 {
		t.Fatal("unavailable backend must not run anything")
	}
}

func TestRegistryUnknownMode(t *testing.T) {
	r := &Registry{backends: nil}
	if _, err := r.For(domain.IsolationMode("vm")); !errors.Is(err, domain.ErrSandboxUnavailable) {
		t.Fatalf("expected ErrSandboxUnavailable for unknown mode, got %v", err)
	}
}
