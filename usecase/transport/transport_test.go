package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/repository"
	"github.com/fastygo/shipops/usecase"
)

type fakeTaskRepo struct {
	mu        sync.Mutex
	tasks     map[string]*domain.Task
	conflicts int
	saveErr   error
	saves     int
}

func newFakeTaskRepo(tasks ...*domain.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: map[string]*domain.Task{}}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *task
	clone.TransportLegs = domain.CloneLegs(task.TransportLegs)
	return &clone, nil
}

func (r *fakeTaskRepo) List(context.Context, repository.TaskFilter) ([]domain.Task, error) {
	return nil, nil
}

func (r *fakeTaskRepo) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	return task, nil
}

func (r *fakeTaskRepo) Update(context.Context, *domain.Task) error { return nil }

func (r *fakeTaskRepo) Delete(context.Context, string) error { return nil }

func (r *fakeTaskRepo) SaveTransport(_ context.Context, id string, expectedVersion int, legs []domain.Leg, status domain.TransportState, completedAt *time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.saveErr != nil {
		return 0, r.saveErr
	}
	task, ok := r.tasks[id]
	if !ok {
		return 0, domain.ErrTaskNotFound
	}
	if r.conflicts > 0 {
		r.conflicts--
		task.Version++
		return 0, domain.ErrVersionConflict
	}
	if task.Version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	task.TransportLegs = domain.CloneLegs(legs)
	task.TransportStatus = status
	task.TransportCompletedAt = completedAt
	task.Version++
	return task.Version, nil
}

type fakeRecorder struct {
	changes []usecase.LegChange
	err     error
}

func (r *fakeRecorder) Record(_ context.Context, change usecase.LegChange) error {
	r.changes = append(r.changes, change)
	return r.err
}

type fakeLocker struct {
	acquired int
	released int
	err      error
}

func (l *fakeLocker) Acquire(context.Context, string) (func(context.Context) error, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func(context.Context) error {
		l.released++
		return nil
	}, nil
}

type fakeMetrics struct {
	transitions   map[string]int
	conflicts     int
	auditFailures int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{transitions: map[string]int{}}
}

func (m *fakeMetrics) ObserveTransition(action domain.LegAction, result string) {
	m.transitions[string(action)+"/"+result]++
}

func (m *fakeMetrics) ObserveConflict() { m.conflicts++ }

func (m *fakeMetrics) ObserveAuditFailure(domain.LegAction) { m.auditFailures++ }

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func medicalTask() *domain.Task {
	pickup := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	ret := time.Date(2025, 3, 10, 11, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:           "task-1",
		Type:         domain.TaskTypeMedicalVisit,
		Title:        "Dental appointment",
		PickupAt:     &pickup,
		ReturnAt:     &ret,
		PickupLocal:  "Vessel gangway",
		DropoffLocal: "Clinica Santos",
		Version:      1,
	}
}

func newUseCase(repo *fakeTaskRepo, recorder *fakeRecorder, locker repository.TaskLocker, metrics *fakeMetrics, clock *stepClock) *UseCase {
	return New(repo, recorder, locker, metrics, nil, Config{MaxRetries: 2, Clock: clock.Now})
}

func TestTransitionMaterializesDerivedLegs(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	recorder := &fakeRecorder{}
	metrics := newFakeMetrics()
	clock := &stepClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	uc := newUseCase(repo, recorder, nil, metrics, clock)

	view, err := uc.Legs(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LegsDerived, view.Source)
	require.Len(t, view.Legs, 2)

	result, err := uc.Transition(context.Background(), TransitionRequest{
		TaskID:    "task-1",
		LegID:     "consulta_medica-1",
		Operation: domain.ConfirmLeg{DurationMinutes: intPtr(25)},
		Actor:     domain.Actor{ID: "user-7", Email: "ops@agency.example"},
	})
	require.NoError(t, err)
	assert.Nil(t, result.AuditError)
	assert.Equal(t, 2, result.Version)
	assert.Equal(t, domain.LegCompleted, result.Leg.Status)
	assert.Equal(t, domain.LegPending, result.Previous.Status)
	assert.Equal(t, domain.TransportPending, result.Summary.Status)

	stored := repo.tasks["task-1"]
	require.Len(t, stored.TransportLegs, 2)
	assert.Equal(t, domain.LegCompleted, stored.TransportLegs[0].Status)

	view, err = uc.Legs(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.LegsMaterialized, view.Source)

	require.Len(t, recorder.changes, 1)
	change := recorder.changes[0]
	assert.Equal(t, domain.ActionConfirmLeg, change.Action)
	assert.Equal(t, "user-7", change.Actor.ID)
	assert.Equal(t, clock.now, change.At)
	assert.Equal(t, 1, metrics.transitions["confirm_leg/ok"])
}

func TestTransitionKeepsStoredLegsWhenTaskFieldsChange(t *testing.T) {
	task := medicalTask()
	task.TransportLegs = []domain.Leg{{ID: "custom-1", Label: "Agreed route", Status: domain.LegPending}}
	task.DropoffLocal = "Hospital Central"
	repo := newFakeTaskRepo(task)
	uc := newUseCase(repo, &fakeRecorder{}, nil, newFakeMetrics(), &stepClock{now: time.Now()})

	_, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.UndoLeg{}})
	assert.True(t, errors.Is(err, domain.ErrLegNotFound))

	result, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "custom-1", Operation: domain.ConfirmLeg{}})
	require.NoError(t, err)
	require.Len(t, result.Legs, 1)
	assert.Equal(t, domain.TransportCompleted, result.Summary.Status)
}

func TestTransitionTwoLegLifecycle(t *testing.T) {
	task := &domain.Task{
		ID:      "task-2",
		Type:    domain.TaskTypeMedicalVisit,
		Version: 4,
		TransportLegs: []domain.Leg{
			{ID: "L1", Status: domain.LegPending},
			{ID: "L2", Status: domain.LegPending},
		},
	}
	repo := newFakeTaskRepo(task)
	clock := &stepClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
	uc := newUseCase(repo, &fakeRecorder{}, nil, newFakeMetrics(), clock)
	ctx := context.Background()

	result, err := uc.Transition(ctx, TransitionRequest{TaskID: "task-2", LegID: "L1", Operation: domain.ConfirmLeg{DurationMinutes: intPtr(45)}})
	require.NoError(t, err)
	assert.Equal(t, domain.TransportPending, result.Summary.Status)
	assert.Equal(t, 45, *result.Legs[0].DurationMinutes)
	assert.Equal(t, clock.now, *result.Legs[0].CompletedAt)
	assert.Equal(t, domain.LegPending, result.Legs[1].Status)

	clock.now = clock.now.Add(time.Hour)
	result, err = uc.Transition(ctx, TransitionRequest{TaskID: "task-2", LegID: "L2", Operation: domain.ConfirmLeg{}})
	require.NoError(t, err)
	assert.Equal(t, domain.TransportCompleted, result.Summary.Status)
	require.NotNil(t, repo.tasks["task-2"].TransportCompletedAt)
	assert.Equal(t, clock.now, *repo.tasks["task-2"].TransportCompletedAt)

	completedAt := clock.now
	clock.now = clock.now.Add(time.Hour)
	result, err = uc.Transition(ctx, TransitionRequest{TaskID: "task-2", LegID: "L2", Operation: domain.ConfirmLeg{}})
	require.NoError(t, err)
	assert.Equal(t, completedAt, *result.Summary.CompletedAt, "stays completed with original time")

	result, err = uc.Transition(ctx, TransitionRequest{TaskID: "task-2", LegID: "L1", Operation: domain.UndoLeg{}})
	require.NoError(t, err)
	assert.Equal(t, domain.TransportPending, result.Summary.Status)
	assert.Nil(t, repo.tasks["task-2"].TransportCompletedAt)
	assert.Nil(t, result.Legs[0].DurationMinutes)
	assert.Equal(t, 8, result.Version)
}

func TestTransitionRetriesVersionConflicts(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	repo.conflicts = 2
	metrics := newFakeMetrics()
	uc := newUseCase(repo, &fakeRecorder{}, nil, metrics, &stepClock{now: time.Now()})

	result, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-2", Operation: domain.ConfirmLeg{}})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.saves)
	assert.Equal(t, 2, metrics.conflicts)
	assert.Equal(t, 4, result.Version)
}

func TestTransitionGivesUpAfterMaxRetries(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	repo.conflicts = 10
	recorder := &fakeRecorder{}
	metrics := newFakeMetrics()
	uc := newUseCase(repo, recorder, nil, metrics, &stepClock{now: time.Now()})

	_, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.ConfirmLeg{}})
	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	assert.Equal(t, 3, repo.saves)
	assert.Empty(t, recorder.changes)
	assert.Equal(t, 1, metrics.transitions["confirm_leg/conflict"])
	assert.Nil(t, repo.tasks["task-1"].TransportLegs)
}

func TestTransitionSurfacesAuditFailure(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	recorder := &fakeRecorder{err: domain.ErrAuditWrite}
	metrics := newFakeMetrics()
	uc := newUseCase(repo, recorder, nil, metrics, &stepClock{now: time.Now()})

	result, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.ConfirmLeg{}})
	require.NoError(t, err)
	assert.True(t, errors.Is(result.AuditError, domain.ErrAuditWrite))
	assert.Equal(t, 1, metrics.auditFailures)
	assert.Equal(t, domain.LegCompleted, repo.tasks["task-1"].TransportLegs[0].Status, "state change is kept")
}

func TestTransitionValidationHappensBeforeReads(t *testing.T) {
	repo := newFakeTaskRepo()
	uc := newUseCase(repo, &fakeRecorder{}, nil, newFakeMetrics(), &stepClock{now: time.Now()})
	ctx := context.Background()

	_, err := uc.Transition(ctx, TransitionRequest{LegID: "x", Operation: domain.UndoLeg{}})
	assert.True(t, errors.Is(err, domain.ErrMissingTaskID))

	_, err = uc.Transition(ctx, TransitionRequest{TaskID: "x", Operation: domain.UndoLeg{}})
	assert.True(t, errors.Is(err, domain.ErrMissingLegID))

	_, err = uc.Transition(ctx, TransitionRequest{TaskID: "x", LegID: "y"})
	assert.True(t, errors.Is(err, domain.ErrInvalidOperation))

	_, err = uc.Transition(ctx, TransitionRequest{TaskID: "missing", LegID: "y", Operation: domain.UndoLeg{}})
	assert.True(t, errors.Is(err, domain.ErrTaskNotFound))
	assert.Zero(t, repo.saves)
}

func TestTransitionPersistenceFailureIsNotAudited(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	repo.saveErr = errors.New("connection reset")
	recorder := &fakeRecorder{}
	metrics := newFakeMetrics()
	uc := newUseCase(repo, recorder, nil, metrics, &stepClock{now: time.Now()})

	_, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.ConfirmLeg{}})
	assert.EqualError(t, err, "connection reset")
	assert.Empty(t, recorder.changes)
	assert.Equal(t, 1, metrics.transitions["confirm_leg/error"])
}

func TestTransitionUsesLock(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	locker := &fakeLocker{}
	uc := newUseCase(repo, &fakeRecorder{}, locker, newFakeMetrics(), &stepClock{now: time.Now()})

	_, err := uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.UndoLeg{}})
	require.NoError(t, err)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)

	locker.err = domain.ErrTaskLocked
	_, err = uc.Transition(context.Background(), TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.UndoLeg{}})
	assert.True(t, errors.Is(err, domain.ErrTaskLocked))
	assert.Equal(t, 1, repo.saves)
}

func TestLegsForTaskWithoutTransport(t *testing.T) {
	repo := newFakeTaskRepo(&domain.Task{ID: "task-3", Type: "inspecao", Version: 1})
	uc := newUseCase(repo, &fakeRecorder{}, nil, newFakeMetrics(), &stepClock{now: time.Now()})

	view, err := uc.Legs(context.Background(), "task-3")
	require.NoError(t, err)
	assert.NotNil(t, view.Legs)
	assert.Empty(t, view.Legs)
	assert.Equal(t, domain.TransportPending, view.Summary.Status)

	_, err = uc.Legs(context.Background(), "")
	assert.True(t, errors.Is(err, domain.ErrMissingTaskID))
}

func intPtr(v int) *int { return &v }

func TestTransitionContinuesWhenLockBackendIsDown(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	recorder := &fakeRecorder{}
	locker := &fakeLocker{err: errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")}
	uc := newUseCase(repo, recorder, locker, newFakeMetrics(), &stepClock{now: time.Now()})

	result, err := uc.Transition(context.Background(), TransitionRequest{
		TaskID:    "task-1",
		LegID:     "consulta_medica-1",
		Operation: domain.ConfirmLeg{},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.LegCompleted, result.Leg.Status)
	assert.Equal(t, 1, repo.saves)
	assert.Len(t, recorder.changes, 1)
}

func TestTransitionLockErrorAfterCancelFails(t *testing.T) {
	repo := newFakeTaskRepo(medicalTask())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	locker := &fakeLocker{err: context.Canceled}
	uc := newUseCase(repo, &fakeRecorder{}, locker, newFakeMetrics(), &stepClock{now: time.Now()})

	_, err := uc.Transition(ctx, TransitionRequest{TaskID: "task-1", LegID: "consulta_medica-1", Operation: domain.ConfirmLeg{}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, repo.saves)
}

func TestTransitionAuditUsesCommitTimestamp(t *testing.T) {
	repo := newFakeTaskRepo(&domain.Task{ID: "task-5", Type: domain.TaskTypeAirportTransfer, PickupLocal: "GRU", Hotel: "Hotel Atlantico", Version: 1})
	recorder := &fakeRecorder{}
	start := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	calls := 0
	uc := New(repo, recorder, nil, newFakeMetrics(), nil, Config{
		MaxRetries: 1,
		Clock: func() time.Time {
			calls++
			return start.Add(time.Duration(calls) * time.Minute)
		},
	})

	result, err := uc.Transition(context.Background(), TransitionRequest{
		TaskID:    "task-5",
		LegID:     "transfer_aeroporto-1",
		Operation: domain.ConfirmLeg{},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Leg.CompletedAt)
	require.NotNil(t, result.Summary.CompletedAt)
	require.Len(t, recorder.changes, 1)
	assert.Equal(t, *result.Leg.CompletedAt, recorder.changes[0].At)
	assert.Equal(t, *result.Summary.CompletedAt, recorder.changes[0].At)
}
