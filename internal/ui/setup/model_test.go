package setup

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/session"
)

func newTestModel(t *testing.T) (Model, string, *string) {
	t.Helper()

	cfg, err := model.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")

	var saved string
	m := New(cfg, path, nil, 80, 24)
	m.saveToken = func(token string) error {
		saved = token
		return nil
	}
	return m, path, &saved
}

func TestValidateToken(t *testing.T) {
	token, err := session.Mint("secret", "admin-1", model.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("Mint: %v", err)
	}

	if err := validateToken(token); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}
	for _, bad := range []string{"", "   ", "not-a-jwt"} {
		if err := validateToken(bad); err == nil {
			t.Errorf("validateToken(%q) accepted", bad)
		}
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"https://sim.example.com", false},
		{"http://localhost:8080", false},
		{"", true},
		{"sim.example.com", true},
	}
	for _, tt := range tests {
		if err := validateURL(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validateURL(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
	}
}

func TestSuccessfulValidationSaves(t *testing.T) {
	m, path, saved := newTestModel(t)
	m.values.baseURL = " http://localhost:8080/ "
	m.values.token = "tok"
	m.mode = ModeValidating

	m, cmd := m.Update(validatedMsg{})
	if cmd == nil {
		t.Fatal("no SavedMsg command")
	}
	msg, ok := cmd().(SavedMsg)
	if !ok {
		t.Fatalf("got %T, want SavedMsg", cmd())
	}
	if msg.Config.Backend.BaseURL != "http://localhost:8080" || msg.Token != "tok" {
		t.Errorf("saved %+v token %q", msg.Config.Backend, msg.Token)
	}
	if *saved != "tok" {
		t.Errorf("keyring token = %q", *saved)
	}

	loaded, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Backend.BaseURL != "http://localhost:8080" {
		t.Errorf("persisted base url = %q", loaded.Backend.BaseURL)
	}
}

func TestFailedValidationReturnsToForm(t *testing.T) {
	m, _, saved := newTestModel(t)
	m.values.baseURL = "http://localhost:8080"
	m.mode = ModeValidating

	m, _ = m.Update(validatedMsg{err: errors.New("403 forbidden")})
	if m.Mode() != ModeFailed {
		t.Fatalf("mode = %v, want ModeFailed", m.Mode())
	}
	if *saved != "" {
		t.Error("token saved despite failed validation")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.Mode() != ModeForm {
		t.Errorf("mode = %v, want ModeForm", m.Mode())
	}
	if m.values.baseURL != "http://localhost:8080" {
		t.Errorf("form values lost: %q", m.values.baseURL)
	}
}
