package notify

import (
	"fmt"
	"strings"
	"time"
)

// Category groups notifications for icon and colour selection.
type Category int

const (
	CategoryGeneral Category = iota
	CategorySignup
	CategoryVerified
)

// CategoryFor infers the category from keywords in the message.
func CategoryFor(message string) Category {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "signed up"):
		return CategorySignup
	case strings.Contains(lower, "verified"):
		return CategoryVerified
	default:
		return CategoryGeneral
	}
}

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategorySignup:
		return "signup"
	case CategoryVerified:
		return "verified"
	default:
		return "general"
	}
}

// Icon returns the glyph drawn next to records of this category.
func (c Category) Icon() string {
	switch c {
	case CategorySignup:
		return "+"
	case CategoryVerified:
		return "✓"
	default:
		return "•"
	}
}

// RelativeTime returns a human-friendly age for t measured from now.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
