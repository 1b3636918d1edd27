package audit

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/pkg/filesystem"
	"github.com/doeshing/cmdgate/internal/ports"
)

// SQLiteStore persists audit records in a SQLite database. The append path
// is mutex-serialized so sequence numbers stay strictly increasing under
// concurrent sessions; records are never updated or deleted.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore creates (or opens) the audit database. Unlike softer
// stores, failures here are returned loudly: an unusable audit log is a
// compliance gap, not an inconvenience.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join(filesystem.UserHomeDir(), ".cmdgate", "audit", "audit.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &SQLiteStore{db: db, path: path}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS audit_records (
		seq INTEGER PRIMARY KEY,
		timestamp TEXT NOT NULL,
		session_id TEXT NOT NULL,
		raw TEXT NOT NULL,
		normalized TEXT NOT NULL,
		origin TEXT,
		severity TEXT NOT NULL,
		rule_ids TEXT,
		primary_rule TEXT,
		categories TEXT,
		reasons TEXT,
		action TEXT NOT NULL,
		reason TEXT,
		override INTEGER NOT NULL DEFAULT 0,
		executed INTEGER NOT NULL DEFAULT 0,
		exit_code INTEGER,
		termination TEXT,
		duration_ms INTEGER,
		stdout TEXT,
		stderr TEXT,
		truncated INTEGER,
		isolation TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_audit_session ON audit_records(session_id, seq);`)
	if err != nil {
		return err
	}
	// Databases created before the reasons column existed are upgraded in
	// place; the duplicate-column error on newer schemas is expected.
	_, _ = s.db.Exec(`ALTER TABLE audit_records ADD COLUMN reasons TEXT`)
	return nil
}

// Append implements ports.AuditLog.
func (s *SQLiteStore) Append(record domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ruleIDs, _ := json.Marshal(record.Classification.RuleIDs)
	categories, _ := json.Marshal(record.Classification.Categories)
	reasons, _ := json.Marshal(record.Classification.Reasons)

	var (
		executed   int
		exitCode   sql.NullInt64
		term       sql.NullString
		durationMS sql.NullInt64
		stdout     sql.NullString
		stderr     sql.NullString
		truncated  sql.NullInt64
		isolation  sql.NullString
	)
	if exec := record.Execution; exec != nil {
		executed = 1
		exitCode = sql.NullInt64{Int64: int64(exec.ExitCode), Valid: true}
		term = sql.NullString{String: string(exec.Termination), Valid: true}
		durationMS = sql.NullInt64{Int64: exec.Duration.Milliseconds(), Valid: true}
		stdout = sql.NullString{String: exec.Stdout, Valid: true}
		stderr = sql.NullString{String: exec.Stderr, Valid: true}
		truncated = sql.NullInt64{Int64: boolToInt64(exec.Truncated), Valid: true}
		isolation = sql.NullString{String: string(exec.Isolation), Valid: true}
	}

	_, err := s.db.Exec(`INSERT INTO audit_records
		(seq, timestamp, session_id, raw, normalized, origin, severity, rule_ids,
		 primary_rule, categories, reasons, action, reason, override, executed, exit_code,
		 termination, duration_ms, stdout, stderr, truncated, isolation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.Seq,
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.SessionID,
		record.Command.Raw,
		record.Command.Normalized,
		string(record.Command.Origin),
		string(record.Classification.Severity),
		string(ruleIDs),
		record.Classification.PrimaryRule,
		string(categories),
		string(reasons),
		string(record.Decision.Action),
		record.Decision.Reason,
		boolToInt64(record.Decision.OverrideUsed),
		executed,
		exitCode,
		term,
		durationMS,
		stdout,
		stderr,
		truncated,
		isolation,
	)
	if err != nil {
		return &domain.AuditWriteError{Seq: record.Seq, Cause: err}
	}
	return nil
}

// Records returns records for a session in ascending sequence order; an
// empty session id returns records across all sessions.
func (s *SQLiteStore) Records(sessionID string, limit, offset int) ([]domain.AuditRecord, error) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT seq, timestamp, session_id, raw, normalized, origin,
		severity, rule_ids, primary_rule, categories, reasons, action, reason, override,
		executed, exit_code, termination, duration_ms, stdout, stderr, truncated, isolation
		FROM audit_records`)
	var args []interface{}
	if sessionID != "" {
		builder.WriteString(" WHERE session_id = ?")
		args = append(args, sessionID)
	}
	builder.WriteString(" ORDER BY seq ASC")
	// OFFSET is only valid after a LIMIT clause; -1 means unlimited.
	if limit > 0 {
		builder.WriteString(" LIMIT ?")
		args = append(args, limit)
	} else if offset > 0 {
		builder.WriteString(" LIMIT -1")
	}
	if offset > 0 {
		builder.WriteString(" OFFSET ?")
		args = append(args, offset)
	}

	rows, err := s.db.Query(builder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LastSequence returns the highest stored sequence number, for seeding the
// counter at startup (recovery by replay).
func (s *SQLiteStore) LastSequence() (uint64, error) {
	var last sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(seq) FROM audit_records").Scan(&last); err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return uint64(last.Int64), nil
}

// ExportJSON writes all records to a jsonl file.
func (s *SQLiteStore) ExportJSON(dest string) error {
	records, err := s.Records("", 0, 0)
	if err != nil {
		return err
	}
	file, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer file.Close()
	for _, rec := range records {
		b, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := file.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanRecord(rows *sql.Rows) (domain.AuditRecord, error) {
	var (
		rec        domain.AuditRecord
		ts         string
		origin     sql.NullString
		ruleIDs    sql.NullString
		categories sql.NullString
		reasons    sql.NullString
		override   int64
		executed   int64
		exitCode   sql.NullInt64
		term       sql.NullString
		durationMS sql.NullInt64
		stdout     sql.NullString
		stderr     sql.NullString
		truncated  sql.NullInt64
		isolation  sql.NullString
	)
	err := rows.Scan(&rec.Seq, &ts, &rec.SessionID, &rec.Command.Raw, &rec.Command.Normalized,
		&origin, &rec.Classification.Severity, &ruleIDs, &rec.Classification.PrimaryRule,
		&categories, &reasons, &rec.Decision.Action, &rec.Decision.Reason, &override,
		&executed, &exitCode, &term, &durationMS, &stdout, &stderr, &truncated, &isolation)
	if err != nil {
		return domain.AuditRecord{}, err
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		rec.Timestamp = t
	}
	rec.Command.Origin = domain.CommandOrigin(origin.String)
	rec.Classification.Normalized = rec.Command.Normalized
	if ruleIDs.Valid && ruleIDs.String != "" {
		_ = json.Unmarshal([]byte(ruleIDs.String), &rec.Classification.RuleIDs)
	}
	if categories.Valid && categories.String != "" {
		_ = json.Unmarshal([]byte(categories.String), &rec.Classification.Categories)
	}
	if reasons.Valid && reasons.String != "" {
		_ = json.Unmarshal([]byte(reasons.String), &rec.Classification.Reasons)
	}
	rec.Decision.Severity = rec.Classification.Severity
	rec.Decision.RuleID = rec.Classification.PrimaryRule
	rec.Decision.OverrideUsed = override == 1
	if executed == 1 {
		exec := &domain.ExecutionResult{
			ExitCode:    int(exitCode.Int64),
			Termination: domain.TerminationReason(term.String),
			Duration:    time.Duration(durationMS.Int64) * time.Millisecond,
			Stdout:      stdout.String,
			Stderr:      stderr.String,
			Truncated:   truncated.Int64 == 1,
			Isolation:   domain.IsolationMode(isolation.String),
		}
		rec.Execution = exec
	}
	return rec, nil
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

var _ ports.AuditLog = (*SQLiteStore)(nil)
