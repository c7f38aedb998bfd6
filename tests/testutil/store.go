package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/store"
)

// NewTestStore opens an in-memory SQLiteStore with all migrations applied
// and closes it when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedNotifications inserts broadcast notifications one minute apart
// starting at base, in the order given, and returns them.
func SeedNotifications(t *testing.T, s store.Store, base time.Time, messages ...string) []model.Notification {
	t.Helper()

	out := make([]model.Notification, 0, len(messages))
	for i, msg := range messages {
		n, err := s.CreateNotification(context.Background(), model.Notification{
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seeding notification %q: %v", msg, err)
		}
		out = append(out, *n)
	}
	return out
}
