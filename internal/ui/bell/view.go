package bell

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/sim-admin/internal/model"
	"github.com/nhle/sim-admin/internal/notify"
	"github.com/nhle/sim-admin/internal/theme"
)

// maxVisible is how many records the dropdown shows at once.
const maxVisible = 10

// View renders the bell badge for the header. Non-admin viewers get "".
func (m Model) View() string {
	if !m.admin {
		return ""
	}

	parts := []string{"🔔"}
	if n := m.store.Unread(); n > 0 {
		label := fmt.Sprintf("%d", n)
		if n > 99 {
			label = "99+"
		}
		parts = append(parts, theme.BadgeStyle.Render(label))
	}
	if m.offline {
		parts = append(parts, theme.OfflineStyle.Render("offline"))
	}
	return strings.Join(parts, " ")
}

// DropdownView renders the notification list when the dropdown is open.
func (m Model) DropdownView() string {
	if !m.admin || !m.open {
		return ""
	}

	title := lipgloss.NewStyle().Bold(true).Render(
		fmt.Sprintf("Notifications (%d unread)", m.store.Unread()),
	)

	var rows []string
	if m.store.Len() == 0 {
		rows = append(rows, theme.DimmedStyle.Render("No notifications yet."))
	}

	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	now := m.now()
	for i := start; i < m.store.Len() && i < start+maxVisible; i++ {
		rec, _ := m.store.At(i)
		rows = append(rows, m.renderRecord(rec, i == m.cursor, now))
	}

	hints := theme.HelpStyle.Render("enter: mark read  A: mark all read  esc: close")
	content := lipgloss.JoinVertical(lipgloss.Left,
		title, "", strings.Join(rows, "\n"), "", hints)

	return theme.PanelStyle.Width(m.width).Render(content)
}

func (m Model) renderRecord(rec model.Notification, selected bool, now time.Time) string {
	cat := notify.CategoryFor(rec.Message)
	icon := theme.CategoryStyle(cat.String()).Render(cat.Icon())

	marker := " "
	if !rec.IsRead {
		marker = "●"
	}

	age := theme.DimmedStyle.Render(notify.RelativeTime(rec.CreatedAt, now))
	line := fmt.Sprintf("%s %s %s  %s", marker, icon, rec.Message, age)

	switch {
	case selected:
		return theme.SelectedItemStyle.Render(line)
	case rec.IsRead:
		return theme.ListItemStyle.Inherit(theme.DimmedStyle).Render(line)
	default:
		return theme.ListItemStyle.Render(line)
	}
}

// ToastView renders the toast, or "" when none is showing.
func (m Model) ToastView() string {
	if !m.admin || !m.toast.Visible() {
		return ""
	}
	cat := notify.CategoryFor(m.toast.Message())
	icon := theme.CategoryStyle(cat.String()).Render(cat.Icon())
	return theme.ToastStyle.Render(icon + " " + m.toast.Message() + "  " +
		theme.HelpStyle.Render("x"))
}
