package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "tok", WithAPIKey("anon"), WithRateLimit(0))
}

func TestListNotifications(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/admin/notifications" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon" {
			t.Errorf("apikey = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"notifications":[
			{"id":"1","userId":null,"message":"New user a@b.c signed up","isRead":false,"createdAt":"2026-01-02T03:04:05Z"},
			{"id":"2","userId":"u1","message":"User a@b.c verified their email","isRead":true,"createdAt":"2026-01-01T03:04:05Z"}
		]}`))
	})

	got, err := c.ListNotifications(context.Background())
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].UserID != nil {
		t.Errorf("record 1 UserID = %v, want nil", *got[0].UserID)
	}
	if got[1].UserID == nil || *got[1].UserID != "u1" {
		t.Errorf("record 2 UserID = %v, want u1", got[1].UserID)
	}
	if got[0].IsRead || !got[1].IsRead {
		t.Errorf("read flags = %v/%v, want false/true", got[0].IsRead, got[1].IsRead)
	}
	if got[0].CreatedAt.Year() != 2026 {
		t.Errorf("CreatedAt = %v", got[0].CreatedAt)
	}
}

func TestListNotificationsUnsuccessfulBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"not ready"}`))
	})

	_, err := c.ListNotifications(context.Background())
	if !errors.Is(err, ErrUnsuccessful) {
		t.Fatalf("err = %v, want ErrUnsuccessful", err)
	}
}

func TestMarkReadPaths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	if err := c.MarkRead(context.Background(), "abc"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if err := c.MarkAllRead(context.Background()); err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}

	want := []string{"/api/admin/notifications/abc/read", "/api/admin/notifications/read-all"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("paths = %v, want %v", paths, want)
	}
}

func TestAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"success":false,"error":"admin role required"}`))
	})

	err := c.MarkAllRead(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("err = %v, want AuthError", err)
	}

	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "admin role required" {
		t.Errorf("Message = %q", authErr.Message)
	}
}

func TestRetriesOnceOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	if err := c.MarkRead(context.Background(), "1"); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGivesUpAfterOneRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := c.MarkRead(context.Background(), "1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want 429 APIError", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"notification not found"}`))
	})

	err := c.MarkRead(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "notification not found" {
		t.Fatalf("err = %v, want 404 APIError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
