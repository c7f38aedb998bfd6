// Package setup is the first-run form that collects the backend address
// and the administrator access token.
package setup

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sim-admin/internal/credential"
	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/session"
	"github.com/nhle/sim-admin/internal/theme"
)

const validateTimeout = 15 * time.Second

// Mode is the current step of the setup flow.
type Mode int

const (
	ModeForm Mode = iota
	ModeValidating
	ModeFailed
)

// SavedMsg is sent once the settings are validated and persisted.
type SavedMsg struct {
	Config *model.AppConfig
	Token  string
}

// CancelledMsg is sent when the user leaves the form without saving.
type CancelledMsg struct{}

// Validator checks that the backend accepts the settings, typically by
// fetching the notification list once.
type Validator func(ctx context.Context, cfg *model.AppConfig, token string) error

type validatedMsg struct {
	err error
}

// values lives on the heap so the form keeps writing to the same fields
// while the Model is copied through Update.
type values struct {
	baseURL string
	apiKey  string
	token   string
}

// Model is the setup view.
type Model struct {
	cfg        *model.AppConfig
	configPath string
	validate   Validator
	saveToken  func(string) error

	form    *huh.Form
	values  *values
	spinner spinner.Model
	mode    Mode
	err     error
	width   int
	height  int
}

// New creates the setup view prefilled from cfg.
func New(cfg *model.AppConfig, configPath string, validate Validator, width, height int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		cfg:        cfg,
		configPath: configPath,
		validate:   validate,
		saveToken:  credential.SetAccessToken,
		values: &values{
			baseURL: cfg.Backend.BaseURL,
			apiKey:  cfg.Backend.APIKey,
		},
		spinner: s,
		width:   width,
		height:  height,
	}
	m.form = m.buildForm()
	return m
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func (m Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Backend URL").
				Description("Root URL of the simulation backend").
				Placeholder("https://sim.example.com").
				Value(&m.values.baseURL).
				Validate(validateURL),
			huh.NewInput().
				Title("API key").
				Description("Public project key, if the backend requires one").
				Value(&m.values.apiKey),
			huh.NewInput().
				Title("Access token").
				Description("Administrator access token (JWT)").
				EchoMode(huh.EchoModePassword).
				Value(&m.values.token).
				Validate(validateToken),
		),
	).WithWidth(m.formWidth())
}

// Update handles form input and the validation result.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case validatedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = ModeFailed
			return m, nil
		}
		return m.save()

	case spinner.TickMsg:
		if m.mode != ModeValidating {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode == ModeFailed {
			// Any key returns to the form with the values kept.
			m.mode = ModeForm
			m.err = nil
			m.form = m.buildForm()
			return m, m.form.Init()
		}
	}

	if m.mode != ModeForm {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeValidating
		return m, tea.Batch(m.spinner.Tick, m.runValidation())
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelledMsg{} }
	}
	return m, cmd
}

// settings returns a copy of the config with the form values applied.
func (m Model) settings() *model.AppConfig {
	cfg := *m.cfg
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(m.values.baseURL), "/")
	cfg.Backend.APIKey = strings.TrimSpace(m.values.apiKey)
	return &cfg
}

func (m Model) runValidation() tea.Cmd {
	if m.validate == nil {
		return func() tea.Msg { return validatedMsg{} }
	}
	cfg, token, validate := m.settings(), strings.TrimSpace(m.values.token), m.validate
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		defer cancel()
		return validatedMsg{err: validate(ctx, cfg, token)}
	}
}

func (m Model) save() (Model, tea.Cmd) {
	cfg := m.settings()
	token := strings.TrimSpace(m.values.token)

	if err := model.SaveConfig(m.configPath, cfg); err != nil {
		m.err = err
		m.mode = ModeFailed
		return m, nil
	}
	if err := m.saveToken(token); err != nil {
		m.err = fmt.Errorf("saving access token: %w", err)
		m.mode = ModeFailed
		return m, nil
	}

	return m, func() tea.Msg { return SavedMsg{Config: cfg, Token: token} }
}

// View renders the current step.
func (m Model) View() string {
	style := lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height)

	switch m.mode {
	case ModeValidating:
		return style.Render(m.spinner.View() + " Checking backend access...")
	case ModeFailed:
		return style.Render(lipgloss.JoinVertical(lipgloss.Left,
			theme.ErrorStyle.Render("Setup failed"),
			"",
			m.err.Error(),
			"",
			theme.HelpStyle.Render("Press any key to edit the settings."),
		))
	default:
		title := lipgloss.NewStyle().Bold(true).MarginBottom(1).Render("Connect to the backend")
		return style.Render(lipgloss.JoinVertical(lipgloss.Left, title, m.form.View()))
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

// Mode returns the current step.
func (m Model) Mode() Mode {
	return m.mode
}

func (m Model) formWidth() int {
	if m.width > 84 {
		return 80
	}
	if m.width > 10 {
		return m.width - 4
	}
	return 60
}

func validateURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("URL is required")
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("URL must include scheme and host (e.g., https://example.com)")
	}
	return nil
}

func validateToken(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("access token is required")
	}
	if _, err := session.Inspect(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("access token is not a valid JWT")
	}
	return nil
}
