package handler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/shipops/api/transport"
	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/pkg/httpcontext"
	"github.com/fastygo/shipops/repository"
)

type memoryTasks struct {
	mu          sync.Mutex
	tasks       map[string]*domain.Task
	alwaysStale bool
}

func newMemoryTasks(tasks ...*domain.Task) *memoryTasks {
	m := &memoryTasks{tasks: map[string]*domain.Task{}}
	for _, task := range tasks {
		m.tasks[task.ID] = task
	}
	return m
}

func (m *memoryTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	clone := *task
	clone.TransportLegs = domain.CloneLegs(task.TransportLegs)
	return &clone, nil
}

func (m *memoryTasks) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, task := range m.tasks {
		if filter.Type != "" && string(task.Type) != filter.Type {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (m *memoryTasks) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task.Version = 1
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memoryTasks) Update(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; !ok {
		return domain.ErrTaskNotFound
	}
	m.tasks[task.ID] = task
	return nil
}

func (m *memoryTasks) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memoryTasks) SaveTransport(_ context.Context, id string, expectedVersion int, legs []domain.Leg, status domain.TransportState, completedAt *time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return 0, domain.ErrTaskNotFound
	}
	if m.alwaysStale || task.Version != expectedVersion {
		return 0, domain.ErrVersionConflict
	}
	task.TransportLegs = domain.CloneLegs(legs)
	task.TransportStatus = status
	task.TransportCompletedAt = completedAt
	task.Version++
	return task.Version, nil
}

type memoryAudit struct {
	entries []domain.AuditEntry
	history []domain.HistoryEntry
	err     error
}

func (m *memoryAudit) AppendTransition(_ context.Context, entry domain.AuditEntry, history domain.HistoryEntry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	m.history = append(m.history, history)
	return nil
}

func (m *memoryAudit) List(_ context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for _, entry := range m.entries {
		if entry.EntityID == filter.EntityID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (m *memoryAudit) ListHistory(_ context.Context, taskID string, _ int) ([]domain.HistoryEntry, error) {
	var out []domain.HistoryEntry
	for _, h := range m.history {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	return out, nil
}

type memoryUsers map[string]*domain.User

func (m memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := m[id]; ok {
		return user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m memoryUsers) ResolveActor(ctx context.Context, id string) (domain.Actor, error) {
	user, err := m.GetByID(ctx, id)
	if err != nil {
		return domain.Actor{}, err
	}
	return user.Actor(), nil
}

type request struct {
	method string
	body   string
	userID string
	email  string
	params map[string]string
	query  string
}

func serve(t *testing.T, handler fasthttp.RequestHandler, req request) (*fasthttp.RequestCtx, transport.Envelope) {
	t.Helper()

	var r fasthttp.Request
	r.Header.SetMethod(req.method)
	r.SetRequestURI("/test?" + req.query)
	if req.body != "" {
		r.SetBodyString(req.body)
		r.Header.SetContentType("application/json")
	}
	if req.userID != "" {
		r.Header.Set(httpcontext.HeaderUserID, req.userID)
	}
	if req.email != "" {
		r.Header.Set(httpcontext.HeaderUserEmail, req.email)
	}

	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&r, nil, nil)
	for key, value := range req.params {
		ctx.SetUserValue(key, value)
	}

	handler(ctx)

	var envelope transport.Envelope
	if body := ctx.Response.Body(); len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &envelope))
	}
	return ctx, envelope
}

// decodeData re-encodes the envelope data into out.
func decodeData(t *testing.T, envelope transport.Envelope, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}
