package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const createDroppedReportsTable = `
CREATE TABLE IF NOT EXISTS dropped_reports (
    id         TEXT PRIMARY KEY,
    item_id    TEXT NOT NULL,
    task_type  TEXT NOT NULL,
    status     TEXT NOT NULL,
    reason     TEXT,
    output     BLOB,
    attempts   INTEGER NOT NULL,
    dropped_at DATETIME NOT NULL
)`

// Compile-time interface satisfaction check.
var _ Journal = (*SQLiteJournal)(nil)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens the SQLite database at dbPath and runs migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createDroppedReportsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dropped_reports table: %w", err)
	}

	return &SQLiteJournal{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}

// Append inserts a dropped report record.
func (s *SQLiteJournal) Append(ctx context.Context, r *DroppedReport) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dropped_reports (
			id, item_id, task_type, status, reason, output, attempts, dropped_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ItemID, r.TaskType, r.Status, r.Reason, r.Output, r.Attempts, r.DroppedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dropped report: %w", err)
	}
	return nil
}

// List returns a paginated list of dropped reports ordered by dropped_at DESC,
// along with the total count.
func (s *SQLiteJournal) List(ctx context.Context, limit, offset int) ([]*DroppedReport, int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("begin read tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM dropped_reports").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count dropped reports: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, item_id, task_type, status, reason, output, attempts, dropped_at
		FROM dropped_reports ORDER BY dropped_at DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list dropped reports: %w", err)
	}
	defer rows.Close()

	var reports []*DroppedReport
	for rows.Next() {
		r := &DroppedReport{}
		if err := rows.Scan(
			&r.ID, &r.ItemID, &r.TaskType, &r.Status, &r.Reason, &r.Output, &r.Attempts, &r.DroppedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan dropped report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate dropped reports: %w", err)
	}

	return reports, total, nil
}
