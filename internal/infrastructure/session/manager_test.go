package session

import (
	"sync"
	"testing"
	"time"

	"github.com/doeshing/cmdgate/internal/domain"
)

func TestSnapshotDefaultsNotElevated(t *testing.T) {
	m := NewManager(0)
	s := m.Snapshot("s1")
	if s.ID != "s1" || s.Elevated {
		t.Fatalf("unexpected snapshot: %+v", s)
	}
}

func TestReadPathsDoNotCreateSessions(t *testing.T) {
	m := NewManager(0)
	for i := 0; i < 100; i++ {
		id := string(rune('a'+i%26)) + "-unknown"
		m.Snapshot(id)
		m.Recent(id, 5)
	}
	m.mu.Lock()
	n := len(m.sessions)
	m.mu.Unlock()
	if n != 0 {
		t.Fatalf("read-only lookups created %d sessions", n)
	}

	m.Record("s1", domain.AuditRef{Seq: 1})
	m.mu.Lock()
	n = len(m.sessions)
	m.mu.Unlock()
	if n != 1 {
		t.Fatalf("write path should create exactly one session, got %d", n)
	}
}

func TestElevationExpires(t *testing.T) {
	m := NewManager(0)
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.GrantElevation("s1", 5*time.Minute)
	if !m.Snapshot("s1").Elevated {
		t.Fatal("elevation not active after grant")
	}

	clock = clock.Add(4 * time.Minute)
	if !m.Snapshot("s1").Elevated {
		t.Fatal("elevation expired early")
	}

	clock = clock.Add(2 * time.Minute)
	if m.Snapshot("s1").Elevated {
		t.Fatal("elevation survived past its ttl")
	}
}

func TestElevationIsPerSession(t *testing.T) {
	m := NewManager(0)
	m.GrantElevation("s1", time.Hour)
	if m.Snapshot("s2").Elevated {
		t.Fatal("elevation leaked into another session")
	}
}

func TestHistoryBounded(t *testing.T) {
	m := NewManager(3)
	for seq := uint64(1); seq <= 5; seq++ {
		m.Record("s1", domain.AuditRef{Seq: seq})
	}

	refs := m.Recent("s1", 0)
	if len(refs) != 3 {
		t.Fatalf("history holds %d refs, want 3", len(refs))
	}
	// Newest first, oldest evicted.
	want := []uint64{5, 4, 3}
	for i, ref := range refs {
		if ref.Seq != want[i] {
			t.Fatalf("refs[%d].Seq = %d, want %d", i, ref.Seq, want[i])
		}
	}
}

func TestRecentLimit(t *testing.T) {
	m := NewManager(0)
	for seq := uint64(1); seq <= 10; seq++ {
		m.Record("s1", domain.AuditRef{Seq: seq})
	}
	refs := m.Recent("s1", 2)
	if len(refs) != 2 || refs[0].Seq != 10 || refs[1].Seq != 9 {
		t.Fatalf("unexpected refs: %+v", refs)
	}
}

func TestAcquireSerializesWithinSession(t *testing.T) {
	m := NewManager(0)

	var mu sync.Mutex
	running := 0
	maxRunning := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.Acquire("s1")
			defer release()

			mu.Lock()
			running++
			if running > maxRunning {
				maxRunning = running
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxRunning != 1 {
		t.Fatalf("saw %d concurrent executions in one session", maxRunning)
	}
}

func TestIndependentSessionsDoNotContend(t *testing.T) {
	m := NewManager(0)

	releaseA := m.Acquire("a")
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		release := m.Acquire("b")
		release()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("session b blocked on session a's lock")
	}
}

func TestCloseForgetsSession(t *testing.T) {
	m := NewManager(0)
	m.GrantElevation("s1", time.Hour)
	m.Record("s1", domain.AuditRef{Seq: 1})

	m.Close("s1")

	if m.Snapshot("s1").Elevated {
		t.Fatal("elevation survived Close")
	}
	if refs := m.Recent("s1", 0); len(refs) != 0 {
		t.Fatalf("history survived Close: %+v", refs)
	}
}
