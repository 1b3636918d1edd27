package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/cmdgate/internal/domain"
)

func sampleRecord(seq uint64, sessionID string) domain.AuditRecord {
	return domain.AuditRecord{
		Seq:       seq,
		Timestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		SessionID: sessionID,
		Command: domain.Command{
			Raw:        "rm -rf /tmp/scratch",
			Normalized: "rm -rf /tmp/scratch",
			Origin:     domain.OriginTranslated,
		},
		Classification: domain.ClassificationResult{
			Normalized:  "rm -rf /tmp/scratch",
			Severity:    domain.RiskLow,
			RuleIDs:     []string{"rm-plain"},
			PrimaryRule: "rm-plain",
			Categories:  []string{domain.CategoryDestructiveDelete},
			Reasons:     []string{"recursive delete of a scratch path"},
		},
		Decision: domain.PolicyDecision{
			Action:   domain.ActionConfirm,
			Severity: domain.RiskLow,
			RuleID:   "rm-plain",
			Reason:   "matched destructive-delete rule (low severity)",
		},
	}
}

func TestSQLiteStoreRoundtrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	want := sampleRecord(1, "s1")
	want.Execution = &domain.ExecutionResult{
		ExitCode:    0,
		Stdout:      "done\n",
		Termination: domain.TerminationCompleted,
		Duration:    1250 * time.Millisecond,
		Isolation:   domain.IsolationRestricted,
	}
	if err := store.Append(want); err != nil {
		t.Fatalf("Append error: %v", err)
	}

	records, err := store.Records("s1", 0, 0)
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if diff := cmp.Diff(want, records[0]); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStoreConcurrentAppendsStayOrdered(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	counter := NewCounter(0)
	const sessions = 8
	const perSession = 25

	var wg sync.WaitGroup
	errCh := make(chan error, sessions*perSession)
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("session-%d", i)
			for j := 0; j < perSession; j++ {
				rec := sampleRecord(counter.Next(), sessionID)
				if err := store.Append(rec); err != nil {
					errCh <- err
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("Append error: %v", err)
	}

	records, err := store.Records("", 0, 0)
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(records) != sessions*perSession {
		t.Fatalf("got %d records, want %d", len(records), sessions*perSession)
	}
	for i := 1; i < len(records); i++ {
		if records[i].Seq <= records[i-1].Seq {
			t.Fatalf("sequence not strictly increasing at %d: %d then %d",
				i, records[i-1].Seq, records[i].Seq)
		}
	}

	last, err := store.LastSequence()
	if err != nil {
		t.Fatalf("LastSequence error: %v", err)
	}
	if last != sessions*perSession {
		t.Fatalf("LastSequence = %d, want %d", last, sessions*perSession)
	}
}

func TestSQLiteStoreSessionFilterAndPaging(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	for seq := uint64(1); seq <= 10; seq++ {
		session := "a"
		if seq%2 == 0 {
			session = "b"
		}
		if err := store.Append(sampleRecord(seq, session)); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	records, err := store.Records("a", 2, 1)
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Seq != 3 || records[1].Seq != 5 {
		t.Fatalf("paging wrong: seqs %d, %d", records[0].Seq, records[1].Seq)
	}
}

func TestSQLiteStoreOffsetWithoutLimit(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	defer store.Close()

	for seq := uint64(1); seq <= 3; seq++ {
		if err := store.Append(sampleRecord(seq, "s1")); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	records, err := store.Records("", 0, 1)
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Seq != 2 || records[1].Seq != 3 {
		t.Fatalf("offset wrong: seqs %d, %d", records[0].Seq, records[1].Seq)
	}
}

func TestSQLiteStoreSeedsCounterAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore error: %v", err)
	}
	counter := NewCounter(0)
	for i := 0; i < 3; i++ {
		if err := store.Append(sampleRecord(counter.Next(), "s1")); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}
	store.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()
	last, err := reopened.LastSequence()
	if err != nil {
		t.Fatalf("LastSequence error: %v", err)
	}
	if next := NewCounter(last).Next(); next != 4 {
		t.Fatalf("restarted counter issued %d, want 4", next)
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "audit.jsonl"))

	for seq := uint64(1); seq <= 3; seq++ {
		if err := store.Append(sampleRecord(seq, "s1")); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	records, err := store.Records("s1", 0, 0)
	if err != nil {
		t.Fatalf("Records error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if diff := cmp.Diff(sampleRecord(2, "s1"), records[1]); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	last, err := store.LastSequence()
	if err != nil {
		t.Fatalf("LastSequence error: %v", err)
	}
	if last != 3 {
		t.Fatalf("LastSequence = %d, want 3", last)
	}
}

func TestFileStoreAppendFailureIsAuditWriteError(t *testing.T) {
	// The store path collides with an existing file used as a directory.
	dir := t.TempDir()
	blocked := filepath.Join(dir, "blocked")
	store := NewFileStore(filepath.Join(blocked, "audit.jsonl"))
	if err := os.WriteFile(blocked, []byte("in the way"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := store.Append(sampleRecord(1, "s1"))
	if !errors.Is(err, domain.ErrAuditWrite) {
		t.Fatalf("expected ErrAuditWrite, got %v", err)
	}
	var writeErr *domain.AuditWriteError
	if !errors.As(err, &writeErr) || writeErr.Seq != 1 {
		t.Fatalf("error does not carry the sequence: %v", err)
	}
}

func TestCounterStrictlyIncreasingUnderConcurrency(t *testing.T) {
	counter := NewCounter(100)
	const workers = 16
	const perWorker = 200

	seen := make(chan uint64, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				seen <- counter.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[uint64]bool{}
	for seq := range seen {
		if seq <= 100 {
			t.Fatalf("sequence %d not after the seed", seq)
		}
		if unique[seq] {
			t.Fatalf("sequence %d issued twice", seq)
		}
		unique[seq] = true
	}
	if len(unique) != workers*perWorker {
		t.Fatalf("issued %d unique sequences, want %d", len(unique), workers*perWorker)
	}
}
