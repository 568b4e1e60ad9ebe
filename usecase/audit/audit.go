package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/pkg/logger"
	"github.com/fastygo/shipops/repository"
	"github.com/fastygo/shipops/usecase"
)

type UseCase struct {
	entries repository.AuditRepository
	buffer  usecase.OperationBuffer
	logger  *zap.Logger
	newID   func() string
}

func New(entries repository.AuditRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		entries: entries,
		buffer:  buffer,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// Record appends the audit entry and history line for a committed leg change.
// A failed write is handed to the buffer for replay and still reported as
// domain.ErrAuditWrite, since the entry is not yet durable in the log.
func (uc *UseCase) Record(ctx context.Context, change usecase.LegChange) error {
	entry, history, err := BuildEntries(change, uc.newID, logger.RequestIDFromContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrAuditWrite, err)
	}

	writeErr := uc.entries.AppendTransition(ctx, entry, history)
	if writeErr == nil {
		return nil
	}

	log := logger.WithRequestID(ctx, uc.logger).With(
		zap.String("task_id", change.TaskID),
		zap.String("leg_id", change.LegID),
		zap.String("action", string(change.Action)),
	)
	if uc.buffer != nil {
		if bufErr := uc.buffer.BufferAudit(ctx, entry, history); bufErr != nil {
			log.Error("failed to buffer audit entry", zap.Error(bufErr))
		} else {
			log.Warn("audit entry buffered for replay", zap.String("audit_id", entry.ID))
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrAuditWrite, writeErr)
}

func (uc *UseCase) List(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	return uc.entries.List(ctx, filter)
}

func (uc *UseCase) History(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error) {
	return uc.entries.ListHistory(ctx, taskID, limit)
}

// BuildEntries turns a leg change into its audit entry and history line.
func BuildEntries(change usecase.LegChange, newID func() string, requestID string) (domain.AuditEntry, domain.HistoryEntry, error) {
	oldValues, err := json.Marshal(change.Old)
	if err != nil {
		return domain.AuditEntry{}, domain.HistoryEntry{}, fmt.Errorf("encode old leg: %w", err)
	}
	newValues, err := json.Marshal(change.New)
	if err != nil {
		return domain.AuditEntry{}, domain.HistoryEntry{}, fmt.Errorf("encode new leg: %w", err)
	}

	entry := domain.AuditEntry{
		ID:         newID(),
		Entity:     domain.AuditEntityTasks,
		EntityID:   change.TaskID,
		Action:     change.Action,
		OldValues:  oldValues,
		NewValues:  newValues,
		ActorID:    optional(change.Actor.ID),
		ActorEmail: optional(change.Actor.Email),
		RequestID:  requestID,
		CreatedAt:  change.At,
	}

	history := domain.HistoryEntry{
		ID:     newID(),
		TaskID: change.TaskID,
		Action: describe(change),
		Details: domain.HistoryDetails{
			Group: change.New.Group,
			LegID: change.LegID,
		},
		ActorID:   optional(change.Actor.ID),
		CreatedAt: change.At,
	}

	return entry, history, nil
}

func describe(change usecase.LegChange) string {
	label := change.New.Label
	if label == "" {
		label = change.LegID
	}
	switch change.Action {
	case domain.ActionConfirmLeg:
		if change.New.IsCompleted() {
			return fmt.Sprintf("Transport leg confirmed: %s", label)
		}
		return fmt.Sprintf("Transport leg set to pending: %s", label)
	case domain.ActionUndoLeg:
		return fmt.Sprintf("Transport leg confirmation undone: %s", label)
	case domain.ActionEditLeg:
		return fmt.Sprintf("Transport leg edited: %s", label)
	default:
		return fmt.Sprintf("Transport leg updated: %s", label)
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

var _ usecase.AuditRecorder = (*UseCase)(nil)
