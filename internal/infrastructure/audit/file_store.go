package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/pkg/filesystem"
	"github.com/doeshing/cmdgate/internal/ports"
)

// FileStore appends audit records to a jsonl file. It exists for deployments
// without SQLite and shares the same append-only contract: one marshaled
// record per line, never rewritten.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates the store under ~/.cmdgate/audit/audit.jsonl unless a
// path is given.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join(filesystem.UserHomeDir(), ".cmdgate", "audit", "audit.jsonl")
	}
	return &FileStore{path: path}
}

// Append implements ports.AuditLog.
func (f *FileStore) Append(record domain.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return &domain.AuditWriteError{Seq: record.Seq, Cause: err}
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &domain.AuditWriteError{Seq: record.Seq, Cause: err}
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return &domain.AuditWriteError{Seq: record.Seq, Cause: err}
	}
	data = append(data, '\n')
	if _, err := file.Write(data); err != nil {
		return &domain.AuditWriteError{Seq: record.Seq, Cause: err}
	}
	// Durable storage is the whole point of this log.
	if err := file.Sync(); err != nil {
		return &domain.AuditWriteError{Seq: record.Seq, Cause: err}
	}
	return nil
}

// Records loads matching records in ascending sequence order.
func (f *FileStore) Records(sessionID string, limit, offset int) ([]domain.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []domain.AuditRecord
	skipped := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var rec domain.AuditRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if sessionID != "" && rec.SessionID != sessionID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, scanner.Err()
}

// LastSequence scans for the highest stored sequence number.
func (f *FileStore) LastSequence() (uint64, error) {
	records, err := f.Records("", 0, 0)
	if err != nil {
		return 0, err
	}
	var last uint64
	for _, rec := range records {
		if rec.Seq > last {
			last = rec.Seq
		}
	}
	return last, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Close is a no-op; the file is opened per append.
func (f *FileStore) Close() error { return nil }

var _ ports.AuditLog = (*FileStore)(nil)
