package notify

import "testing"

func TestToastSingleSlot(t *testing.T) {
	var toast Toast

	first := toast.Show("first")
	second := toast.Show("second")

	if !toast.Visible() || toast.Message() != "second" {
		t.Fatalf("toast = (%v, %q), want visible second", toast.Visible(), toast.Message())
	}

	// The first timer fires after being superseded.
	if toast.Expire(first) {
		t.Error("stale expiry hid the newer toast")
	}
	if !toast.Visible() {
		t.Fatal("toast hidden by stale expiry")
	}

	if !toast.Expire(second) {
		t.Error("current expiry did not hide the toast")
	}
	if toast.Visible() {
		t.Error("toast still visible after expiry")
	}
}

func TestToastDismissIsIdempotent(t *testing.T) {
	var toast Toast
	key := toast.Show("hello")

	toast.Dismiss()
	toast.Dismiss()
	if toast.Visible() {
		t.Fatal("toast visible after dismiss")
	}

	// The countdown still fires later and must be harmless.
	if toast.Expire(key) {
		t.Error("expiry after dismiss reported a change")
	}
}

func TestToastKeyTracksLatestShow(t *testing.T) {
	var toast Toast
	if toast.Key() != 0 {
		t.Errorf("Key() = %d before any Show, want 0", toast.Key())
	}
	first := toast.Show("a")
	second := toast.Show("b")
	if toast.Key() != second || second == first {
		t.Errorf("Key() = %d, want latest %d (first %d)", toast.Key(), second, first)
	}
}
