package bell

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sim-admin/internal/model"
)

type fakeAPI struct {
	mu         sync.Mutex
	records    []model.Notification
	listErr    error
	markErr    error
	markAllErr error
	calls      []string
}

func (f *fakeAPI) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) ListNotifications(context.Context) ([]model.Notification, error) {
	f.record("list")
	return f.records, f.listErr
}

func (f *fakeAPI) MarkRead(_ context.Context, id string) error {
	f.record("read:" + id)
	return f.markErr
}

func (f *fakeAPI) MarkAllRead(context.Context) error {
	f.record("read-all")
	return f.markAllErr
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeFeed struct {
	events       chan model.Notification
	err          error
	unsubscribed int
	once         sync.Once
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{events: make(chan model.Notification, 8)}
}

func (f *fakeFeed) Events() <-chan model.Notification { return f.events }
func (f *fakeFeed) Err() error                        { return f.err }
func (f *fakeFeed) Unsubscribe() {
	f.unsubscribed++
	f.once.Do(func() { close(f.events) })
}

func rec(id string, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Message:   "New user " + id + "@example.com signed up",
		IsRead:    read,
		CreatedAt: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

// runBatch executes cmd and, if it is a batch, each of its parts.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		out = append(out, runBatch(c)...)
	}
	return out
}

func keyPress(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// mount creates an admin bell and delivers its Init results.
func mount(t *testing.T, api *fakeAPI, feed *fakeFeed) Model {
	t.Helper()

	subscribe := func(context.Context) (Feed, error) { return feed, nil }
	m := New(true, api, subscribe, WithClock(func() time.Time {
		return time.Date(2026, 5, 1, 9, 5, 0, 0, time.UTC)
	}))
	t.Cleanup(m.Close)

	for _, msg := range runBatch(m.Init()) {
		m, _ = m.Update(msg)
	}
	return m
}

func ids(m Model) []string {
	var out []string
	for _, r := range m.Records() {
		out = append(out, r.ID)
	}
	return out
}

func TestGateClosedDoesNothing(t *testing.T) {
	api := &fakeAPI{records: []model.Notification{rec("1", false)}}
	subscribed := false
	subscribe := func(context.Context) (Feed, error) {
		subscribed = true
		return newFakeFeed(), nil
	}

	m := New(false, api, subscribe)
	defer m.Close()

	if cmd := m.Init(); cmd != nil {
		t.Fatal("Init returned a command for a non-admin viewer")
	}

	m, cmd := m.Update(keyPress("b"))
	if cmd != nil {
		t.Error("key press produced a command")
	}
	m, _ = m.Update(snapshotMsg{bell: m.id, records: api.records})

	if m.View() != "" || m.DropdownView() != "" || m.ToastView() != "" {
		t.Error("non-admin bell rendered output")
	}
	if api.callCount() != 0 || subscribed {
		t.Errorf("backend contacted: calls=%d subscribed=%v", api.callCount(), subscribed)
	}
	if m.Unread() != 0 {
		t.Errorf("unread = %d, want 0", m.Unread())
	}
}

func TestEndToEndScenario(t *testing.T) {
	api := &fakeAPI{records: []model.Notification{rec("1", false), rec("2", true)}}
	feed := newFakeFeed()
	m := mount(t, api, feed)

	if m.Unread() != 1 {
		t.Fatalf("unread after snapshot = %d, want 1", m.Unread())
	}

	feed.events <- rec("3", false)
	msg := waitForEvent(m.id, feed)()
	m, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("event did not re-arm the feed")
	}
	if got := strings.Join(ids(m), ","); got != "3,1,2" {
		t.Fatalf("order = %s, want 3,1,2", got)
	}
	if m.Unread() != 2 {
		t.Fatalf("unread after event = %d, want 2", m.Unread())
	}
	if !m.ToastVisible() {
		t.Error("toast not shown for live event")
	}

	// Select record 3 and mark it read.
	m, _ = m.Update(keyPress("b"))
	m, cmd = m.Update(keyPress("enter"))
	if cmd == nil {
		t.Fatal("enter did not issue a mark-read request")
	}
	m, _ = m.Update(cmd())
	if m.Unread() != 1 || !m.Records()[0].IsRead {
		t.Fatalf("after mark read: unread=%d records=%+v", m.Unread(), m.Records())
	}

	m, cmd = m.Update(keyPress("A"))
	m, _ = m.Update(cmd())
	if m.Unread() != 0 {
		t.Errorf("unread after mark all = %d, want 0", m.Unread())
	}
	for _, r := range m.Records() {
		if !r.IsRead {
			t.Errorf("record %s still unread", r.ID)
		}
	}
}

func TestMutationsApplyOnlyOnSuccess(t *testing.T) {
	api := &fakeAPI{
		records:    []model.Notification{rec("1", false), rec("2", false)},
		markErr:    errors.New("boom"),
		markAllErr: errors.New("boom"),
	}
	m := mount(t, api, newFakeFeed())

	m, _ = m.Update(keyPress("b"))
	_, cmd := m.Update(keyPress("enter"))
	m, _ = m.Update(cmd())
	_, cmd = m.Update(keyPress("A"))
	m, _ = m.Update(cmd())

	if m.Unread() != 2 {
		t.Errorf("unread = %d, want 2 after failed mutations", m.Unread())
	}
	for _, r := range m.Records() {
		if r.IsRead {
			t.Errorf("record %s marked read despite failure", r.ID)
		}
	}
}

func TestSnapshotFailureLeavesStoreEmpty(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("unreachable")}
	m := mount(t, api, newFakeFeed())

	if m.Unread() != 0 || len(m.Records()) != 0 {
		t.Errorf("store not empty: %+v", m.Records())
	}
	if api.callCount() != 1 {
		t.Errorf("list called %d times, want exactly 1", api.callCount())
	}
}

func TestToastSingleSlotAndStaleExpiry(t *testing.T) {
	m := mount(t, &fakeAPI{}, newFakeFeed())

	m, _ = m.Update(eventMsg{bell: m.id, feed: newFakeFeed(), record: rec("a", false)})
	firstKey := m.toast.Key()
	m, _ = m.Update(eventMsg{bell: m.id, feed: newFakeFeed(), record: rec("b", false)})

	if !strings.Contains(m.ToastView(), "b@example.com") {
		t.Errorf("toast shows %q, want newest message", m.ToastView())
	}

	// The first toast's timer fires after the second replaced it.
	m, _ = m.Update(toastExpiredMsg{bell: m.id, key: firstKey})
	if !m.ToastVisible() {
		t.Error("stale timer hid the newer toast")
	}

	m, _ = m.Update(toastExpiredMsg{bell: m.id, key: m.toast.Key()})
	if m.ToastVisible() {
		t.Error("current timer did not hide the toast")
	}
}

func TestDismissToast(t *testing.T) {
	m := mount(t, &fakeAPI{}, newFakeFeed())
	m, _ = m.Update(eventMsg{bell: m.id, feed: newFakeFeed(), record: rec("a", false)})

	m, _ = m.Update(keyPress("x"))
	if m.ToastVisible() {
		t.Error("toast still visible after dismiss")
	}
	m, _ = m.Update(keyPress("x"))
	if m.ToastVisible() {
		t.Error("second dismiss changed state")
	}
}

func TestRedeliveredEventDoesNotToastAgain(t *testing.T) {
	m := mount(t, &fakeAPI{}, newFakeFeed())
	feed := newFakeFeed()

	m, _ = m.Update(eventMsg{bell: m.id, feed: feed, record: rec("c", false)})
	m, _ = m.Update(toastExpiredMsg{bell: m.id, key: m.toast.Key()})
	if m.ToastVisible() {
		t.Fatal("toast still visible after expiry")
	}
	keyBefore := m.toast.Key()

	m, cmd := m.Update(eventMsg{bell: m.id, feed: feed, record: rec("c", false)})
	if m.ToastVisible() {
		t.Error("redelivered event showed the toast again")
	}
	if m.toast.Key() != keyBefore {
		t.Error("redelivered event restarted the toast countdown")
	}
	if len(m.Records()) != 1 || m.Unread() != 1 {
		t.Errorf("len=%d unread=%d, want 1/1", len(m.Records()), m.Unread())
	}
	if cmd == nil {
		t.Error("feed wait was not re-armed after redelivery")
	}
}

func TestFeedClosedMarksOffline(t *testing.T) {
	feed := newFakeFeed()
	m := mount(t, &fakeAPI{}, feed)

	feed.err = errors.New("connection reset")
	feed.Unsubscribe()
	m, _ = m.Update(waitForEvent(m.id, feed)())

	if !m.Offline() {
		t.Error("bell not offline after feed ended")
	}
	if !strings.Contains(m.View(), "offline") {
		t.Errorf("view %q lacks offline marker", m.View())
	}
}

func TestSubscribeFailureIsLoggedOnly(t *testing.T) {
	api := &fakeAPI{records: []model.Notification{rec("1", false)}}
	subscribe := func(context.Context) (Feed, error) { return nil, errors.New("refused") }
	m := New(true, api, subscribe)
	defer m.Close()

	for _, msg := range runBatch(m.Init()) {
		m, _ = m.Update(msg)
	}
	if m.Unread() != 1 {
		t.Errorf("unread = %d, want snapshot still applied", m.Unread())
	}
	if !m.Offline() {
		t.Error("bell not offline after subscribe failure")
	}
}

func TestMessagesForOtherBellIgnored(t *testing.T) {
	m := mount(t, &fakeAPI{}, newFakeFeed())
	stale := newFakeFeed()

	m, _ = m.Update(snapshotMsg{bell: m.id + 1000, records: []model.Notification{rec("1", false)}})
	m, _ = m.Update(subscribedMsg{bell: m.id + 1000, feed: stale})

	if m.Unread() != 0 {
		t.Errorf("unread = %d, want 0", m.Unread())
	}
	if stale.unsubscribed != 1 {
		t.Errorf("stale feed unsubscribed %d times, want 1", stale.unsubscribed)
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	feed := newFakeFeed()
	m := mount(t, &fakeAPI{}, feed)

	m.Close()
	if feed.unsubscribed == 0 {
		t.Error("Close did not unsubscribe the feed")
	}
}

func TestBadgeShowsUnreadCount(t *testing.T) {
	api := &fakeAPI{records: []model.Notification{rec("1", false), rec("2", false), rec("3", true)}}
	m := mount(t, api, newFakeFeed())

	if !strings.Contains(m.View(), "2") {
		t.Errorf("badge %q lacks unread count", m.View())
	}
	m, _ = m.Update(keyPress("b"))
	if !strings.Contains(m.DropdownView(), "5m ago") {
		t.Errorf("dropdown lacks relative time:\n%s", m.DropdownView())
	}
}
