package usecase

import (
	"context"

	"github.com/fastygo/shipops/domain"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationAppend = "append"
)

// OperationBuffer abstracts the buffer processor so use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferTask(ctx context.Context, operation string, task *domain.Task) error
	BufferAudit(ctx context.Context, entry domain.AuditEntry, history domain.HistoryEntry) error
}
