package repository

import (
	"context"

	"github.com/fastygo/shipops/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// ResolveActor loads only the audit identity of a user.
	ResolveActor(ctx context.Context, id string) (domain.Actor, error)
}
