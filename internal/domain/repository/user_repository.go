package repository

import (
	"context"

	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
)

// UserRepository is the persistence port for users. It holds no business rules.
// Implementations return apperror kinds: NotFound, Conflict, Store.
type UserRepository interface {
	// ListActive returns active users, most recently updated first, then most
	// recently created, plus the total number of active users.
	ListActive(ctx context.Context, offset, limit int) ([]entity.User, int64, error)
	GetActiveByID(ctx context.Context, id string) (*entity.User, error)
	// GetByID matches regardless of state.
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetCredentials(ctx context.Context, id string) (*entity.Credentials, error)
	// Insert assigns ID and timestamps on u and returns the new id.
	Insert(ctx context.Context, u *entity.User) (string, error)
	// UpdateFields applies p to an active user in a single statement.
	UpdateFields(ctx context.Context, id string, p entity.UserPatch) error
	// SoftDelete flips state off, clears role flags and the photo in one write.
	SoftDelete(ctx context.Context, id string) error
}
