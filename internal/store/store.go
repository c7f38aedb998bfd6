package store

import (
	"context"
	"errors"

	"github.com/nhle/sim-admin/internal/model"
)

// ErrNotFound is returned when a lookup or update targets a missing row.
var ErrNotFound = errors.New("not found")

// NotificationFilter controls notification queries.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
}

// Store defines the persistence interface of the development backend.
type Store interface {
	// === Users ===

	CreateUser(ctx context.Context, u model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	MarkUserVerified(ctx context.Context, id string) (*model.User, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) (*model.Notification, error)
	GetNotifications(ctx context.Context, filter NotificationFilter) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)
}
