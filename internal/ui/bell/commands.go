package bell

import (
	"context"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/sim-admin/internal/model"
)

// Messages carry the id of the bell that issued the command so that a
// remounted bell ignores results meant for its predecessor.

type snapshotMsg struct {
	bell    uint64
	records []model.Notification
	err     error
}

type subscribedMsg struct {
	bell uint64
	feed Feed
	err  error
}

type eventMsg struct {
	bell   uint64
	feed   Feed
	record model.Notification
}

type feedClosedMsg struct {
	bell uint64
	err  error
}

type markReadMsg struct {
	bell uint64
	id   string
	err  error
}

type markAllReadMsg struct {
	bell uint64
	err  error
}

type toastExpiredMsg struct {
	bell uint64
	key  uint64
}

func logf(format string, args ...interface{}) {
	log.Printf("bell: "+format, args...)
}

func (m Model) loadSnapshot() tea.Cmd {
	id, ctx, api := m.id, m.ctx, m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		records, err := api.ListNotifications(ctx)
		return snapshotMsg{bell: id, records: records, err: err}
	}
}

func (m Model) openFeed() tea.Cmd {
	id, ctx, subscribe := m.id, m.ctx, m.subscribe
	return func() tea.Msg {
		feed, err := subscribe(ctx)
		return subscribedMsg{bell: id, feed: feed, err: err}
	}
}

// waitForEvent blocks until the feed delivers an event or ends. It is
// re-issued after every event.
func waitForEvent(id uint64, feed Feed) tea.Cmd {
	return func() tea.Msg {
		record, ok := <-feed.Events()
		if !ok {
			return feedClosedMsg{bell: id, err: feed.Err()}
		}
		return eventMsg{bell: id, feed: feed, record: record}
	}
}

func expireToast(id, key uint64, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{bell: id, key: key}
	})
}

func (m Model) markRead(recordID string) tea.Cmd {
	id, ctx, api := m.id, m.ctx, m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		return markReadMsg{bell: id, id: recordID, err: api.MarkRead(ctx, recordID)}
	}
}

func (m Model) markAllRead() tea.Cmd {
	id, ctx, api := m.id, m.ctx, m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		return markAllReadMsg{bell: id, err: api.MarkAllRead(ctx)}
	}
}
