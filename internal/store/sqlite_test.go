package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/store"
	"github.com/nhle/sim-admin/tests/testutil"
)

func TestCreateAndVerifyUser(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, model.User{Email: " Jane@Example.com ", Name: "Jane"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Email != "jane@example.com" || u.Role != model.RoleTrainee {
		t.Fatalf("unexpected user %+v", u)
	}

	verified, err := s.MarkUserVerified(ctx, u.ID)
	if err != nil {
		t.Fatalf("MarkUserVerified: %v", err)
	}
	if !verified.Verified {
		t.Error("user not verified")
	}

	if _, err := s.MarkUserVerified(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, model.User{Email: "a@b.c"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateUser(ctx, model.User{Email: "A@B.C"}); err == nil {
		t.Error("duplicate email accepted")
	}
}

func TestNotificationsNewestFirst(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	testutil.SeedNotifications(t, s, base, "first", "second", "third")

	got, err := s.GetNotifications(ctx, store.NotificationFilter{})
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d notifications, want 3", len(got))
	}
	for i, want := range []string{"third", "second", "first"} {
		if got[i].Message != want {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Message, want)
		}
		if got[i].IsRead {
			t.Errorf("got[%d] unexpectedly read", i)
		}
		if got[i].UserID != nil {
			t.Errorf("got[%d] has owner %q, want broadcast", i, *got[i].UserID)
		}
	}
	if !got[0].CreatedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("CreatedAt = %v, want %v", got[0].CreatedAt, base.Add(2*time.Minute))
	}
}

func TestNotificationOwner(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, model.User{Email: "admin@example.com", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := s.CreateNotification(ctx, model.Notification{UserID: &u.ID, Message: "owned"}); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	got, err := s.GetNotifications(ctx, store.NotificationFilter{})
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(got) != 1 || got[0].UserID == nil || *got[0].UserID != u.ID {
		t.Fatalf("unexpected notifications %+v", got)
	}
}

func TestMarkNotificationsRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateNotification(ctx, model.Notification{Message: "a"})
	if _, err := s.CreateNotification(ctx, model.Notification{Message: "b"}); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	if err := s.MarkNotificationRead(ctx, a.ID); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	// Marking twice is not an error.
	if err := s.MarkNotificationRead(ctx, a.ID); err != nil {
		t.Fatalf("second MarkNotificationRead: %v", err)
	}
	if err := s.MarkNotificationRead(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	unread, err := s.GetNotifications(ctx, store.NotificationFilter{UnreadOnly: true})
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(unread) != 1 || unread[0].Message != "b" {
		t.Fatalf("unread = %+v, want only b", unread)
	}

	n, err := s.MarkAllNotificationsRead(ctx)
	if err != nil {
		t.Fatalf("MarkAllNotificationsRead: %v", err)
	}
	if n != 1 {
		t.Errorf("changed %d rows, want 1", n)
	}

	unread, _ = s.GetNotifications(ctx, store.NotificationFilter{UnreadOnly: true})
	if len(unread) != 0 {
		t.Errorf("unread = %d, want 0", len(unread))
	}
}
