package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/internal/infrastructure/buffer"
	"github.com/fastygo/shipops/usecase"
)

// BufferBridge adapts the processor to the use case buffer port.
type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) BufferTask(ctx context.Context, operation string, task *domain.Task) error {
	if b.processor == nil || task == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}
	// One pending item per task and operation; a newer update replaces an older one.
	item := buffer.Item{
		ID:        operation + ":" + task.ID,
		TaskID:    task.ID,
		Entity:    buffer.EntityTask,
		Operation: operation,
		Data:      payload,
		Priority:  buffer.PriorityTask,
	}
	return b.processor.BufferOperation(ctx, item)
}

// BufferAudit parks an audit entry without retrying it inline: the caller has
// just seen the write fail.
func (b *BufferBridge) BufferAudit(ctx context.Context, entry domain.AuditEntry, history domain.HistoryEntry) error {
	if b.processor == nil || entry.ID == "" {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(buffer.AuditPayload{Entry: entry, History: history})
	if err != nil {
		return err
	}
	item := buffer.Item{
		ID:        entry.ID,
		TaskID:    entry.EntityID,
		Entity:    buffer.EntityAudit,
		Operation: buffer.OperationAppend,
		Data:      payload,
		Priority:  buffer.PriorityAudit,
	}
	return b.processor.Park(item)
}

var _ usecase.OperationBuffer = (*BufferBridge)(nil)
