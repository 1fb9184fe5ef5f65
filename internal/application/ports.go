package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
)

const (
	EventUserCreated = "user_created"
	EventUserUpdated = "user_updated"
	EventUserDeleted = "user_deleted"
)

// UserEvent describes a committed lifecycle change.
type UserEvent struct {
	Type     string
	UserID   string
	Email    string
	Name     string
	PhotoURL string
	Changes  []string
	At       time.Time
}

// Notifier delivers lifecycle events. Failures never undo the change.
type Notifier interface {
	Notify(ctx context.Context, ev UserEvent) error
}

// SearchHit is one user in the search projection.
type SearchHit struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PhotoURL  string `json:"photo_url"`
}

// Indexer maintains the search projection of active users.
type Indexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]SearchHit, error)
}
