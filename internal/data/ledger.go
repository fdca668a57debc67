package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chatwarden/internal/biz/domain"
	"chatwarden/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// ledgerRepo implements the violation ledger on sqlite. The message buffer
// is memory-only, but punishment history persists so cooldowns survive a
// restart.
type ledgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo opens (or creates) the ledger database.
func NewLedgerRepo(dbPath string) (repo.LedgerRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS violations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			reason TEXT,
			last_time INTEGER NOT NULL,
			UNIQUE(group_id, user_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create violations table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_violations_last_time ON violations(last_time)`)

	fmt.Println("[Ledger] Database initialized")
	return &ledgerRepo{db: db}, nil
}

// Get returns the record for (groupID, userID), or nil if none exists.
func (r *ledgerRepo) Get(ctx context.Context, groupID, userID string) (*domain.ViolationRecord, error) {
	var rec domain.ViolationRecord
	var lastTime int64
	err := r.db.QueryRowContext(ctx, `
		SELECT group_id, user_id, count, reason, last_time
		FROM violations
		WHERE group_id = ? AND user_id = ?
	`, groupID, userID).Scan(&rec.GroupID, &rec.UserID, &rec.Count, &rec.Reason, &lastTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query violation record: %w", err)
	}
	rec.LastTime = time.Unix(lastTime, 0)
	return &rec, nil
}

// Record registers a punishment, creating or incrementing the record.
func (r *ledgerRepo) Record(ctx context.Context, groupID, userID, reason string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO violations (group_id, user_id, count, reason, last_time)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(group_id, user_id) DO UPDATE SET
			count = count + 1,
			reason = excluded.reason,
			last_time = excluded.last_time
	`, groupID, userID, reason, at.Unix())
	if err != nil {
		return fmt.Errorf("failed to record violation: %w", err)
	}
	return nil
}

// Recent returns the most recently updated records, newest first.
func (r *ledgerRepo) Recent(ctx context.Context, limit int) ([]*domain.ViolationRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT group_id, user_id, count, reason, last_time
		FROM violations
		ORDER BY last_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent violations: %w", err)
	}
	defer rows.Close()

	var records []*domain.ViolationRecord
	for rows.Next() {
		var rec domain.ViolationRecord
		var lastTime int64
		if err := rows.Scan(&rec.GroupID, &rec.UserID, &rec.Count, &rec.Reason, &lastTime); err != nil {
			return nil, fmt.Errorf("failed to scan violation record: %w", err)
		}
		rec.LastTime = time.Unix(lastTime, 0)
		records = append(records, &rec)
	}
	return records, nil
}

// Prune deletes records older than before. Keeps the ledger from growing
// without bound: anything far outside the cooldown window no longer affects
// any guardrail decision.
func (r *ledgerRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM violations WHERE last_time < ?
	`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune violations: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (r *ledgerRepo) Close() error {
	return r.db.Close()
}
