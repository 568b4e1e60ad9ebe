package usecase

import (
	"context"
	"time"

	"github.com/fastygo/shipops/domain"
)

// LegChange describes one committed leg transition for the audit trail.
type LegChange struct {
	TaskID string
	LegID  string
	Action domain.LegAction
	Old    domain.Leg
	New    domain.Leg
	Actor  domain.Actor
	At     time.Time
}

// AuditRecorder appends the audit and history entries of a leg change.
type AuditRecorder interface {
	Record(ctx context.Context, change LegChange) error
}
