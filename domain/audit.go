package domain

import (
	"encoding/json"
	"time"
)

// AuditEntityTasks is the entity name recorded for task audit entries.
const AuditEntityTasks = "tasks"

// Actor identifies who triggered a change. The zero value is the system.
type Actor struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

func (a Actor) IsSystem() bool {
	return a.ID == "" && a.Email == ""
}

// AuditEntry is an append-only record carrying full before and after images.
type AuditEntry struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id"`
	Action     LegAction       `json:"action"`
	OldValues  json.RawMessage `json:"old_values"`
	NewValues  json.RawMessage `json:"new_values"`
	ActorID    *string         `json:"actor_id,omitempty"`
	ActorEmail *string         `json:"actor_email,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// HistoryDetails is the structured part of a history entry.
type HistoryDetails struct {
	Group *string `json:"grupo"`
	LegID string  `json:"legId"`
}

// HistoryEntry is the human readable counterpart of an AuditEntry.
type HistoryEntry struct {
	ID        string         `json:"id"`
	TaskID    string         `json:"task_id"`
	Action    string         `json:"action"`
	Details   HistoryDetails `json:"details"`
	ActorID   *string        `json:"actor_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
