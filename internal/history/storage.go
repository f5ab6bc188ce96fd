// Package history persists audit decisions to a local SQLite database,
// optionally encrypted with SQLCipher. Recording is best effort from the
// pipeline's point of view; reads back the audit trail for the CLI and
// the API.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mutecomm/go-sqlcipher/v4" // SQLCipher driver for encrypted SQLite

	"github.com/ishangarg01/cmd-gen/internal/audit"
	"github.com/ishangarg01/cmd-gen/internal/fileutil"
	"github.com/ishangarg01/cmd-gen/internal/logger"
)

var log = logger.New("history")

// MinEncryptionKeyLength is the minimum required length for encryption keys
const MinEncryptionKeyLength = 16

// Storage handles SQLite/SQLCipher database operations for the decision log.
type Storage struct {
	conn      *sql.DB
	encrypted bool
}

// Record is one persisted decision.
type Record struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	RawCommand   string    `json:"raw_command"`
	FinalCommand string    `json:"final_command,omitempty"`
	Allowed      bool      `json:"allowed"`
	Reason       string    `json:"reason,omitempty"`
	Rule         string    `json:"rule,omitempty"`
}

// Stats summarizes the decision log.
type Stats struct {
	Total   int64 `json:"total"`
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

// NewStorage opens or creates the decision database. An empty
// encryptionKey opens it unencrypted.
func NewStorage(dbPath string, encryptionKey string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := fileutil.SecureMkdirAll(dir); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	params := url.Values{}
	params.Set("_busy_timeout", "5000")
	params.Set("_journal_mode", "WAL")

	// SECURITY: the key travels as a connection-string parameter, never
	// interpolated into a PRAGMA statement.
	if encryptionKey != "" {
		if len(encryptionKey) < MinEncryptionKeyLength {
			return nil, fmt.Errorf("encryption key must be at least %d characters", MinEncryptionKeyLength)
		}
		params.Set("_pragma_key", encryptionKey)
	}

	conn, err := sql.Open("sqlite3", dbPath+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer at a time. One connection serializes
	// all access at the Go level and avoids SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	encrypted := false
	if encryptionKey != "" {
		var result int
		if err := conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
			conn.Close()
			return nil, fmt.Errorf("encryption key verification failed: %w", err)
		}
		encrypted = true
		log.Info("history database encryption enabled")
	}

	s := &Storage{conn: conn, encrypted: encrypted}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// IsEncrypted returns whether the database is encrypted.
func (s *Storage) IsEncrypted() bool {
	return s.encrypted
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.conn.Close()
}

func (s *Storage) initSchema() error {
	_, err := s.conn.ExecContext(context.Background(), schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	raw_command TEXT NOT NULL,
	final_command TEXT,
	allowed BOOLEAN NOT NULL,
	reason TEXT,
	rule TEXT
);
CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions(timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_allowed ON decisions(allowed);
CREATE INDEX IF NOT EXISTS idx_decisions_rule ON decisions(rule);
`

// RecordDecision implements audit.Recorder.
func (s *Storage) RecordDecision(ctx context.Context, e audit.Entry) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO decisions (timestamp, raw_command, final_command, allowed, reason, rule)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.RawCommand, e.FinalCommand, e.Allowed, e.Reason, e.Rule)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// ListRecent returns the newest decisions, most recent first.
func (s *Storage) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, timestamp, raw_command, final_command, allowed, reason, rule
		 FROM decisions ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ListDenied returns the newest denied decisions, most recent first.
func (s *Storage) ListDenied(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, timestamp, raw_command, final_command, allowed, reason, rule
		 FROM decisions WHERE allowed = FALSE ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query denied decisions: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		var final, reason, rule sql.NullString
		if err := rows.Scan(&r.ID, &ts, &r.RawCommand, &final, &r.Allowed, &reason, &rule); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		r.Timestamp = parseSQLiteTime(ts)
		r.FinalCommand = final.String
		r.Reason = reason.String
		r.Rule = rule.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// parseSQLiteTime handles the formats SQLite hands back depending on how
// the value was written.
func parseSQLiteTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// GetStats returns totals for the decision log.
func (s *Storage) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN allowed THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN allowed THEN 0 ELSE 1 END), 0)
		 FROM decisions`).Scan(&st.Total, &st.Allowed, &st.Denied)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return st, nil
}

// Purge deletes decisions older than the retention window and returns the
// number removed. retentionDays of zero keeps everything.
func (s *Storage) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339Nano)
	res, err := s.conn.ExecContext(ctx, `DELETE FROM decisions WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge decisions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info("purged %d decisions older than %d days", n, retentionDays)
	}
	return n, nil
}

// ExportJSONL streams the full decision log as JSON lines, oldest first.
// With compress set the stream is zstd-framed.
func (s *Storage) ExportJSONL(ctx context.Context, w io.Writer, compress bool) error {
	if compress {
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		if err := s.exportJSONL(ctx, enc); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	}
	return s.exportJSONL(ctx, w)
}

func (s *Storage) exportJSONL(ctx context.Context, w io.Writer) error {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, timestamp, raw_command, final_command, allowed, reason, rule
		 FROM decisions ORDER BY timestamp ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode decision %d: %w", r.ID, err)
		}
	}
	return nil
}
