package repository

import (
	"context"

	"github.com/fastygo/shipops/domain"
)

type AuditFilter struct {
	Entity   string
	EntityID string
	Limit    int
	Offset   int
}

// AuditRepository is append-only: entries are never updated or deleted.
type AuditRepository interface {
	AppendTransition(ctx context.Context, entry domain.AuditEntry, history domain.HistoryEntry) error
	List(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
	ListHistory(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error)
}
