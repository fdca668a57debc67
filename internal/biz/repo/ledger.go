package repo

import (
	"context"
	"time"

	"chatwarden/internal/biz/domain"
)

// LedgerRepo is the violation ledger repository interface.
type LedgerRepo interface {
	// Get returns the record for (groupID, userID), or nil if none exists.
	Get(ctx context.Context, groupID, userID string) (*domain.ViolationRecord, error)
	// Record registers a punishment: creates the record with count 1 or
	// increments the existing count, setting reason and last_time.
	Record(ctx context.Context, groupID, userID, reason string, at time.Time) error
	// Recent returns the most recently updated records, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.ViolationRecord, error)
	// Prune deletes records whose last punishment is older than before.
	Prune(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
