package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TranspileRecord is one row of the transpile audit log.
type TranspileRecord struct {
	ID            string
	Dialect       string
	Success       bool
	OriginalSQL   string
	TranspiledSQL string
	Error         string
	WarningCount  int
	DurationMs    float64
	CreatedAt     time.Time
}

// LogTranspile appends a record to the audit log and returns its ID.
func (s *SQLiteStore) LogTranspile(ctx context.Context, rec TranspileRecord) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transpile_log (id, dialect, success, original_sql, transpiled_sql, error, warning_count, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Dialect, rec.Success, rec.OriginalSQL, rec.TranspiledSQL,
		nullString(rec.Error), rec.WarningCount, rec.DurationMs)
	if err != nil {
		return "", fmt.Errorf("failed to log transpile: %w", err)
	}
	return rec.ID, nil
}

// RecentTranspiles returns the most recent audit records, newest first.
func (s *SQLiteStore) RecentTranspiles(ctx context.Context, limit int) ([]TranspileRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, dialect, success, original_sql, transpiled_sql, error, warning_count, duration_ms, created_at
		FROM transpile_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transpile log: %w", err)
	}
	defer rows.Close()

	var records []TranspileRecord
	for rows.Next() {
		var rec TranspileRecord
		var errMsg sql.NullString
		var created string
		if err := rows.Scan(&rec.ID, &rec.Dialect, &rec.Success, &rec.OriginalSQL,
			&rec.TranspiledSQL, &errMsg, &rec.WarningCount, &rec.DurationMs, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transpile record: %w", err)
		}
		rec.Error = errMsg.String
		if t, perr := time.Parse("2006-01-02 15:04:05", created); perr == nil {
			rec.CreatedAt = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
