package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/shipops/domain"
)

const (
	EntityTask  = "task"
	EntityAudit = "audit"

	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationAppend = "append"
)

// Priorities order the drain: lower values are replayed first.
const (
	PriorityAudit = 1
	PriorityTask  = 3
)

// Item represents an operation that should be retried when primary storage is unavailable.
type Item struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`
	Failure   string          `json:"failure,omitempty"`
	DeadAt    time.Time       `json:"dead_at,omitzero"`

	bucketKey []byte
}

// AuditPayload is the Data of an EntityAudit item.
type AuditPayload struct {
	Entry   domain.AuditEntry   `json:"entry"`
	History domain.HistoryEntry `json:"history"`
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Priority <= 0 || i.Priority > 5 {
		i.Priority = PriorityTask
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
}
