package repository

import (
	"context"
	"time"

	"github.com/fastygo/shipops/domain"
)

type TaskFilter struct {
	UserID     string
	Status     string
	Type       string
	PortCallID string
	Limit      int
	Offset     int
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, id string) error

	// SaveTransport writes the leg list, aggregate status and completion time
	// in one statement, only if the stored version still equals expectedVersion.
	// It returns the new version, domain.ErrVersionConflict when the row changed
	// since it was read, or domain.ErrTaskNotFound when it is gone.
	SaveTransport(ctx context.Context, id string, expectedVersion int, legs []domain.Leg, status domain.TransportState, completedAt *time.Time) (int, error)
}

// TaskLocker serializes transitions on a single task across processes.
type TaskLocker interface {
	Acquire(ctx context.Context, taskID string) (release func(context.Context) error, err error)
}
