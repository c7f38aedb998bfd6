package notify

// Toast is the single-slot transient alert shown when a live event
// arrives. A newer message replaces the current one; each Show returns a
// key so that an expiry scheduled for a superseded toast does nothing.
type Toast struct {
	message string
	visible bool
	seq     uint64
}

// Show replaces the toast content, makes it visible and returns the key
// its expiry must present.
func (t *Toast) Show(message string) uint64 {
	t.seq++
	t.message = message
	t.visible = true
	return t.seq
}

// Expire hides the toast if key still identifies the current one.
func (t *Toast) Expire(key uint64) bool {
	if key != t.seq || !t.visible {
		return false
	}
	t.visible = false
	return true
}

// Dismiss hides the toast immediately. Hiding twice is harmless.
func (t *Toast) Dismiss() {
	t.visible = false
}

// Visible reports whether the toast is on screen.
func (t *Toast) Visible() bool {
	return t.visible
}

// Message returns the text of the current toast.
func (t *Toast) Message() string {
	return t.message
}

// Key returns the key of the current toast.
func (t *Toast) Key() uint64 {
	return t.seq
}
