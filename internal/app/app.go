package app

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sim-admin/internal/keys"
	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/session"
	"github.com/nhle/sim-admin/internal/theme"
	"github.com/nhle/sim-admin/internal/ui"
	"github.com/nhle/sim-admin/internal/ui/bell"
	helpview "github.com/nhle/sim-admin/internal/ui/help"
	"github.com/nhle/sim-admin/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewSetup
	ViewHelp
)

// BellFactory builds the notification bell for a configuration and
// access token.
type BellFactory func(cfg *model.AppConfig, token string) bell.Model

// Model is the root Bubble Tea model that manages view routing, layout
// and the notification bell shown in the header.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	cfg        *model.AppConfig
	configPath string
	token      string
	newBell    BellFactory
	validate   setup.Validator

	bell      bell.Model
	helpView  helpview.Model
	setupView setup.Model

	ready     bool
	statusMsg string
}

// New creates the root model. When the backend is not configured yet the
// setup form is shown first.
func New(
	cfg *model.AppConfig,
	configPath string,
	token string,
	newBell BellFactory,
	validate setup.Validator,
) Model {
	k := keys.DefaultKeyMap()

	m := Model{
		keys:       k,
		cfg:        cfg,
		configPath: configPath,
		token:      token,
		newBell:    newBell,
		validate:   validate,
		helpView:   helpview.New(k, 80, 24),
		setupView:  setup.New(cfg, configPath, validate, 80, 24),
	}

	if m.configured() {
		m.bell = newBell(cfg, token)
		m.currentView = ViewDashboard
	} else {
		m.bell = bell.New(false, nil, nil)
		m.currentView = ViewSetup
	}
	return m
}

func (m Model) configured() bool {
	return m.cfg.Backend.BaseURL != "" && m.token != ""
}

// Init starts the bell, or the setup form on first run.
func (m Model) Init() tea.Cmd {
	if m.currentView == ViewSetup {
		return m.setupView.Init()
	}
	return m.bell.Init()
}

// Close releases the bell's live subscription.
func (m Model) Close() {
	m.bell.Close()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.helpView.SetSize(contentWidth, contentHeight)
		m.setupView.SetSize(contentWidth, contentHeight)
		m.bell.SetWidth(min(contentWidth-4, 80))
		if m.currentView == ViewSetup {
			var cmd tea.Cmd
			m.setupView, cmd = m.setupView.Update(msg)
			return m, cmd
		}
		return m, nil

	case setup.SavedMsg:
		// Remount the bell against the new backend.
		m.bell.Close()
		m.cfg = msg.Config
		m.token = msg.Token
		m.bell = m.newBell(m.cfg, m.token)
		m.bell.SetWidth(min(m.layout.ContentWidth()-4, 80))
		m.currentView = ViewDashboard
		m.statusMsg = "Settings saved."
		return m, m.bell.Init()

	case setup.CancelledMsg:
		if !m.configured() {
			m.bell.Close()
			return m, tea.Quit
		}
		m.currentView = ViewDashboard
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.bell, cmd = m.bell.Update(msg)
	cmds = append(cmds, cmd)
	if m.currentView == ViewSetup {
		m.setupView, cmd = m.setupView.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.bell.Close()
		return m, tea.Quit
	}

	if m.currentView == ViewSetup {
		var cmd tea.Cmd
		m.setupView, cmd = m.setupView.Update(msg)
		return m, cmd
	}

	// The open dropdown takes every key except quit.
	if m.bell.Open() && !key.Matches(msg, m.keys.Quit) {
		var cmd tea.Cmd
		m.bell, cmd = m.bell.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.bell.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
		}
		return m, nil

	case key.Matches(msg, m.keys.Setup):
		m.previousView = m.currentView
		m.currentView = ViewSetup
		m.setupView = setup.New(m.cfg, m.configPath, m.validate,
			m.layout.ContentWidth(), m.layout.ContentHeight())
		return m, m.setupView.Init()
	}

	// Bell keys only reach the bell while it is on screen.
	if m.currentView != ViewDashboard {
		return m, nil
	}

	var cmd tea.Cmd
	m.bell, cmd = m.bell.Update(msg)
	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("SimAdmin", m.bell.View())
	content := m.layout.RenderToast(m.renderContent(), m.bell.ToastView())
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSetup:
		return m.setupView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		if dropdown := m.bell.DropdownView(); dropdown != "" {
			return lipgloss.PlaceHorizontal(m.layout.ContentWidth(), lipgloss.Right, dropdown)
		}
		return m.dashboardView()
	}
}

// dashboardView describes the connection when the dropdown is closed.
func (m Model) dashboardView() string {
	role := "unknown"
	if claims, err := session.Inspect(m.token); err == nil {
		role = claims.EffectiveRole()
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render("Simulation admin console"),
		"",
		fmt.Sprintf("Backend: %s", m.cfg.Backend.BaseURL),
		fmt.Sprintf("Role:    %s", role),
	}
	switch {
	case !m.bell.Admin():
		lines = append(lines, "", theme.DimmedStyle.Render("Notifications are shown to administrators only."))
	case m.bell.Offline():
		lines = append(lines, "", theme.OfflineStyle.Render("Live notifications are unavailable."))
	default:
		lines = append(lines, "", fmt.Sprintf("%d unread notifications", m.bell.Unread()))
	}

	return theme.PanelStyle.
		Width(max(m.layout.ContentWidth()-4, 20)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch {
	case m.currentView == ViewSetup:
		return "enter next | esc cancel"
	case m.currentView == ViewHelp:
		return "? close help | esc back"
	case m.bell.Open():
		return "j/k move | enter mark read | A mark all read | esc close"
	case m.statusMsg != "":
		return m.statusMsg + " | " + m.helpView.ShortView()
	default:
		return m.helpView.ShortView() + " | s setup"
	}
}

// CurrentView returns the active view.
func (m Model) CurrentView() ViewState {
	return m.currentView
}

// Bell returns the notification bell.
func (m Model) Bell() bell.Model {
	return m.bell
}
