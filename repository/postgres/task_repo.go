package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/repository"
)

const taskColumns = `
	id, user_id, type, title, description, status, priority, vessel_name, port_call_id,
	pickup_at, return_at, pickup_local, dropoff_local, hotel, due_date, metadata,
	transport_legs, transport_status, transporte_concluido_em, version, created_at, updated_at
`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR user_id = $1)
	  AND ($2 = '' OR status = $2)
	  AND ($3 = '' OR type = $3)
	  AND ($4 = '' OR port_call_id = $4)
	ORDER BY created_at DESC
	LIMIT $5 OFFSET $6
	`
	rows, err := r.pool.Query(ctx, query,
		filter.UserID,
		filter.Status,
		filter.Type,
		filter.PortCallID,
		clampLimit(filter.Limit),
		filter.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (
		id, user_id, type, title, description, status, priority, vessel_name, port_call_id,
		pickup_at, return_at, pickup_local, dropoff_local, hotel, due_date, metadata,
		transport_status, version
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)
	RETURNING version, created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		string(task.Type),
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.VesselName,
		task.PortCallID,
		nullTimePtr(task.PickupAt),
		nullTimePtr(task.ReturnAt),
		task.PickupLocal,
		task.DropoffLocal,
		task.Hotel,
		nullTimePtr(task.DueDate),
		marshalMap(task.Metadata),
		nullString(string(task.TransportStatus)),
	).Scan(&task.Version, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

// Update rewrites the descriptive and scheduling fields. The transport
// columns are left alone; they only change through SaveTransport.
func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET type = $2,
		title = $3,
		description = $4,
		status = $5,
		priority = $6,
		vessel_name = $7,
		port_call_id = $8,
		pickup_at = $9,
		return_at = $10,
		pickup_local = $11,
		dropoff_local = $12,
		hotel = $13,
		due_date = $14,
		metadata = $15,
		version = version + 1,
		updated_at = NOW()
	WHERE id = $1
	RETURNING version, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		string(task.Type),
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.VesselName,
		task.PortCallID,
		nullTimePtr(task.PickupAt),
		nullTimePtr(task.ReturnAt),
		task.PickupLocal,
		task.DropoffLocal,
		task.Hotel,
		nullTimePtr(task.DueDate),
		marshalMap(task.Metadata),
	).Scan(&task.Version, &task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) SaveTransport(
	ctx context.Context,
	id string,
	expectedVersion int,
	legs []domain.Leg,
	status domain.TransportState,
	completedAt *time.Time,
) (int, error) {
	payload, err := marshalLegs(legs)
	if err != nil {
		return 0, fmt.Errorf("encode transport legs: %w", err)
	}

	const query = `
	UPDATE tasks
	SET transport_legs = $3,
		transport_status = $4,
		transporte_concluido_em = $5,
		version = version + 1,
		updated_at = NOW()
	WHERE id = $1 AND version = $2
	RETURNING version
	`

	var version int
	err = r.pool.QueryRow(ctx, query,
		id,
		expectedVersion,
		payload,
		string(status),
		nullTimePtr(completedAt),
	).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tasks WHERE id = $1)`, id).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, domain.ErrTaskNotFound
	}
	return 0, domain.ErrVersionConflict
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var (
		taskType        string
		metadata        []byte
		legs            []byte
		transportStatus *string
	)

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&taskType,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.VesselName,
		&task.PortCallID,
		&task.PickupAt,
		&task.ReturnAt,
		&task.PickupLocal,
		&task.DropoffLocal,
		&task.Hotel,
		&task.DueDate,
		&metadata,
		&legs,
		&transportStatus,
		&task.TransportCompletedAt,
		&task.Version,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.Type = domain.TaskType(taskType)
	if transportStatus != nil {
		task.TransportStatus = domain.TransportState(*transportStatus)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &task.Metadata)
	}

	decoded, err := unmarshalLegs(legs)
	if err != nil {
		return nil, fmt.Errorf("decode transport legs of task %s: %w", task.ID, err)
	}
	task.TransportLegs = decoded

	return &task, nil
}
