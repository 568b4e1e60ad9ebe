package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/repository"
)

type fakeTaskRepo struct {
	created []*domain.Task
	updated []*domain.Task
	deleted []string
	err     error
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	for _, task := range r.created {
		if task.ID == id {
			return task, nil
		}
	}
	return nil, domain.ErrTaskNotFound
}

func (r *fakeTaskRepo) List(context.Context, repository.TaskFilter) ([]domain.Task, error) {
	out := make([]domain.Task, 0, len(r.created))
	for _, task := range r.created {
		out = append(out, *task)
	}
	return out, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if r.err != nil {
		return nil, r.err
	}
	task.Version = 1
	r.created = append(r.created, task)
	return task, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, task *domain.Task) error {
	if r.err != nil {
		return r.err
	}
	r.updated = append(r.updated, task)
	return nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if r.err != nil {
		return r.err
	}
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeTaskRepo) SaveTransport(context.Context, string, int, []domain.Leg, domain.TransportState, *time.Time) (int, error) {
	return 0, errors.New("not used")
}

type fakeBuffer struct {
	operations []string
	err        error
}

func (b *fakeBuffer) BufferTask(_ context.Context, operation string, _ *domain.Task) error {
	if b.err != nil {
		return b.err
	}
	b.operations = append(b.operations, operation)
	return nil
}

func (b *fakeBuffer) BufferAudit(context.Context, domain.AuditEntry, domain.HistoryEntry) error {
	return nil
}

func TestCreateTaskSeedsTransportStatus(t *testing.T) {
	repo := &fakeTaskRepo{}
	uc := New(repo, nil, nil)

	created, err := uc.CreateTask(context.Background(), &domain.Task{
		Title:         "Crew change",
		Type:          domain.TaskTypeCrewEmbark,
		TransportLegs: []domain.Leg{{ID: "forged"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Nil(t, created.TransportLegs)
	assert.Equal(t, domain.TransportPending, created.TransportStatus)

	other, err := uc.CreateTask(context.Background(), &domain.Task{Title: "Inspection", Type: "inspecao"})
	require.NoError(t, err)
	assert.Empty(t, other.TransportStatus)
}

func TestCreateTaskValidation(t *testing.T) {
	uc := New(&fakeTaskRepo{}, nil, nil)
	pickup := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	earlier := pickup.Add(-time.Hour)

	cases := map[string]*domain.Task{
		"nil task":             nil,
		"missing title":        {Type: domain.TaskTypeHotelTransfer},
		"missing type":         {Title: "x"},
		"return before pickup": {Title: "x", Type: domain.TaskTypeMedicalVisit, PickupAt: &pickup, ReturnAt: &earlier},
	}
	for name, task := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := uc.CreateTask(context.Background(), task)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestWritesFallBackToBuffer(t *testing.T) {
	repo := &fakeTaskRepo{err: errors.New("postgres down")}
	buf := &fakeBuffer{}
	uc := New(repo, buf, nil)
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, &domain.Task{Title: "x", Type: domain.TaskTypeHotelTransfer})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = uc.UpdateTask(ctx, &domain.Task{ID: created.ID, Title: "y", Type: domain.TaskTypeHotelTransfer})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteTask(ctx, created.ID))
	assert.Equal(t, []string{"create", "update", "delete"}, buf.operations)
}

func TestWritesFailWhenBufferFails(t *testing.T) {
	repo := &fakeTaskRepo{err: errors.New("postgres down")}
	uc := New(repo, &fakeBuffer{err: errors.New("disk full")}, nil)

	_, err := uc.CreateTask(context.Background(), &domain.Task{Title: "x", Type: domain.TaskTypeHotelTransfer})
	assert.EqualError(t, err, "postgres down")
}

func TestNotFoundIsNotBuffered(t *testing.T) {
	repo := &fakeTaskRepo{err: domain.ErrTaskNotFound}
	buf := &fakeBuffer{}
	uc := New(repo, buf, nil)

	_, err := uc.UpdateTask(context.Background(), &domain.Task{ID: "gone", Title: "x", Type: domain.TaskTypeHotelTransfer})
	assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
	assert.True(t, errors.Is(uc.DeleteTask(context.Background(), "gone"), domain.ErrTaskNotFound))
	assert.Empty(t, buf.operations)
}

func TestMissingIDs(t *testing.T) {
	uc := New(&fakeTaskRepo{}, nil, nil)
	_, err := uc.GetTask(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrMissingTaskID))
	_, err = uc.UpdateTask(context.Background(), &domain.Task{Title: "x", Type: "y"})
	assert.True(t, errors.Is(err, domain.ErrMissingTaskID))
	assert.True(t, errors.Is(uc.DeleteTask(context.Background(), ""), domain.ErrMissingTaskID))
}
