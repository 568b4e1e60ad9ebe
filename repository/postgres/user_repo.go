package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/shipops/domain"
	"github.com/fastygo/shipops/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns the read-only view of operator accounts used to
// attribute leg transitions.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, COALESCE(email, ''), COALESCE(name, ''), role, status, metadata, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var (
		user     domain.User
		metadata []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.Role, &user.Status, &metadata, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, userError(err)
	}
	_ = decodeJSON(metadata, &user.Metadata)
	return &user, nil
}

func (r *userRepository) ResolveActor(ctx context.Context, id string) (domain.Actor, error) {
	const query = `SELECT id, COALESCE(email, '') FROM users WHERE id = $1`

	var actor domain.Actor
	if err := r.pool.QueryRow(ctx, query, id).Scan(&actor.ID, &actor.Email); err != nil {
		return domain.Actor{}, userError(err)
	}
	return actor, nil
}

func userError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrUserNotFound
	}
	return err
}
