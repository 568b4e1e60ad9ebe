package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/repository"
)

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a Postgres-backed append-only audit repository.
func NewAuditRepository(pool *pgxpool.Pool) repository.AuditRepository {
	return &auditRepository{pool: pool}
}

// AppendTransition stores the audit entry and its history line in one
// transaction. Replaying the same ids is a no-op.
func (r *auditRepository) AppendTransition(ctx context.Context, entry domain.AuditEntry, history domain.HistoryEntry) error {
	details, err := json.Marshal(history.Details)
	if err != nil {
		return fmt.Errorf("encode history details: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const auditQuery = `
	INSERT INTO audit_logs (id, entity, entity_id, action, old_values, new_values, actor_id, actor_email, request_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))
	ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, auditQuery,
		entry.ID,
		entry.Entity,
		entry.EntityID,
		string(entry.Action),
		[]byte(entry.OldValues),
		[]byte(entry.NewValues),
		entry.ActorID,
		entry.ActorEmail,
		nullString(entry.RequestID),
		nullTime(entry.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}

	const historyQuery = `
	INSERT INTO task_history (id, task_id, action, details, actor_id, created_at)
	VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))
	ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, historyQuery,
		history.ID,
		history.TaskID,
		history.Action,
		details,
		history.ActorID,
		nullTime(history.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert task history: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *auditRepository) List(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	const query = `
	SELECT id, entity, entity_id, action, old_values, new_values, actor_id, actor_email, COALESCE(request_id, ''), created_at
	FROM audit_logs
	WHERE ($1 = '' OR entity = $1)
	  AND ($2 = '' OR entity_id = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.Entity, filter.EntityID, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			entry     domain.AuditEntry
			action    string
			oldValues []byte
			newValues []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Entity,
			&entry.EntityID,
			&action,
			&oldValues,
			&newValues,
			&entry.ActorID,
			&entry.ActorEmail,
			&entry.RequestID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		entry.Action = domain.LegAction(action)
		entry.OldValues = append(json.RawMessage(nil), oldValues...)
		entry.NewValues = append(json.RawMessage(nil), newValues...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *auditRepository) ListHistory(ctx context.Context, taskID string, limit int) ([]domain.HistoryEntry, error) {
	const query = `
	SELECT id, task_id, action, details, actor_id, created_at
	FROM task_history
	WHERE task_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, taskID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			entry   domain.HistoryEntry
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.Action, &details, &entry.ActorID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &entry.Details)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
