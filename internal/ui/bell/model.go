// Package bell is the dashboard's notification bell: an unread badge, a
// dropdown of recent notifications and a toast for live arrivals.
package bell

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sim-admin/internal/keys"
	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/notify"
)

const (
	// DefaultToastDuration is how long a toast stays on screen.
	DefaultToastDuration = 5 * time.Second

	// DefaultMaxItems bounds the notification list.
	DefaultMaxItems = 200

	// requestTimeout bounds a single backend call.
	requestTimeout = 30 * time.Second
)

// Notifications is the backend the bell reads and updates.
type Notifications interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
}

// Feed is an open live subscription to inserted notifications.
type Feed interface {
	Events() <-chan model.Notification
	Err() error
	Unsubscribe()
}

// SubscribeFunc opens the live subscription.
type SubscribeFunc func(ctx context.Context) (Feed, error)

// Option configures a Model.
type Option func(*Model)

// WithToastDuration overrides the toast lifetime.
func WithToastDuration(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.toastDuration = d
		}
	}
}

// WithMaxItems bounds the list; 0 keeps every record.
func WithMaxItems(n int) Option {
	return func(m *Model) {
		if n >= 0 {
			m.maxItems = n
		}
	}
}

// WithKeyMap overrides the default keybindings.
func WithKeyMap(k *keys.KeyMap) Option {
	return func(m *Model) {
		if k != nil {
			m.keys = k
		}
	}
}

// WithClock overrides the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

var instances atomic.Uint64

// Model is the bell component. All state changes happen in Update.
type Model struct {
	id        uint64
	admin     bool
	api       Notifications
	subscribe SubscribeFunc
	keys      *keys.KeyMap
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	store         *notify.Store
	toast         *notify.Toast
	toastDuration time.Duration
	maxItems      int

	feed    Feed
	offline bool

	open   bool
	cursor int
	width  int
}

// New creates a bell. When isAdmin is false the bell never contacts the
// backend and renders nothing.
func New(isAdmin bool, api Notifications, subscribe SubscribeFunc, opts ...Option) Model {
	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		id:            instances.Add(1),
		admin:         isAdmin,
		api:           api,
		subscribe:     subscribe,
		keys:          keys.DefaultKeyMap(),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		toast:         &notify.Toast{},
		toastDuration: DefaultToastDuration,
		maxItems:      DefaultMaxItems,
		width:         60,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.store = notify.NewStore(m.maxItems)
	return m
}

// Init loads the snapshot and opens the live subscription.
func (m Model) Init() tea.Cmd {
	if !m.admin {
		return nil
	}
	return tea.Batch(m.loadSnapshot(), m.openFeed())
}

// Close ends the live subscription and abandons in-flight requests.
func (m Model) Close() {
	m.cancel()
	if m.feed != nil {
		m.feed.Unsubscribe()
	}
}

// Update handles bell messages and, when relevant, key presses.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.admin {
		return m, nil
	}

	switch msg := msg.(type) {
	case snapshotMsg:
		if msg.bell != m.id {
			return m, nil
		}
		if msg.err != nil {
			logf("loading notifications: %v", msg.err)
			return m, nil
		}
		m.store.ReplaceAll(msg.records)
		m.clampCursor()
		return m, nil

	case subscribedMsg:
		if msg.bell != m.id || m.ctx.Err() != nil {
			if msg.feed != nil {
				msg.feed.Unsubscribe()
			}
			return m, nil
		}
		if msg.err != nil {
			logf("subscribing to notifications: %v", msg.err)
			m.offline = true
			return m, nil
		}
		m.feed = msg.feed
		m.offline = false
		return m, waitForEvent(m.id, msg.feed)

	case eventMsg:
		if msg.bell != m.id {
			return m, nil
		}
		if !m.store.Prepend(msg.record) {
			// Redelivered record: already listed and announced.
			return m, waitForEvent(m.id, msg.feed)
		}
		m.shiftCursor()
		key := m.toast.Show(msg.record.Message)
		return m, tea.Batch(
			waitForEvent(m.id, msg.feed),
			expireToast(m.id, key, m.toastDuration),
		)

	case feedClosedMsg:
		if msg.bell != m.id {
			return m, nil
		}
		if msg.err != nil {
			logf("live notifications ended: %v", msg.err)
		}
		m.feed = nil
		m.offline = true
		return m, nil

	case markReadMsg:
		if msg.bell != m.id {
			return m, nil
		}
		if msg.err != nil {
			logf("marking notification %s read: %v", msg.id, msg.err)
			return m, nil
		}
		m.store.MarkOneRead(msg.id)
		return m, nil

	case markAllReadMsg:
		if msg.bell != m.id {
			return m, nil
		}
		if msg.err != nil {
			logf("marking all notifications read: %v", msg.err)
			return m, nil
		}
		m.store.MarkAllRead()
		return m, nil

	case toastExpiredMsg:
		if msg.bell == m.id {
			m.toast.Expire(msg.key)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// handleKey reacts to bell keys. Navigation and mutation keys only apply
// while the dropdown is open.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleBell):
		m.open = !m.open
		m.clampCursor()
		return m, nil
	case key.Matches(msg, m.keys.DismissToast):
		m.toast.Dismiss()
		return m, nil
	}

	if !m.open {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		m.open = false
	case key.Matches(msg, m.keys.Down):
		if m.cursor < m.store.Len()-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.MarkRead):
		rec, ok := m.store.At(m.cursor)
		if !ok || rec.IsRead {
			return m, nil
		}
		return m, m.markRead(rec.ID)
	case key.Matches(msg, m.keys.MarkAllRead):
		return m, m.markAllRead()
	}
	return m, nil
}

// Admin reports whether the bell is active for this viewer.
func (m Model) Admin() bool {
	return m.admin
}

// Open reports whether the dropdown is showing.
func (m Model) Open() bool {
	return m.open
}

// Offline reports whether the live channel is unavailable.
func (m Model) Offline() bool {
	return m.offline
}

// Unread returns the unread counter.
func (m Model) Unread() int {
	return m.store.Unread()
}

// Records returns a copy of the notification list, most recent first.
func (m Model) Records() []model.Notification {
	return m.store.Records()
}

// ToastVisible reports whether a toast is on screen.
func (m Model) ToastVisible() bool {
	return m.toast.Visible()
}

// SetWidth sets the dropdown width.
func (m *Model) SetWidth(width int) {
	m.width = width
}

// shiftCursor keeps the selection on the same record after a prepend.
func (m *Model) shiftCursor() {
	if m.open && m.store.Len() > 1 {
		m.cursor++
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= m.store.Len() {
		m.cursor = m.store.Len() - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
