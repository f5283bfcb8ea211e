package tray

import "testing"

func TestTitles(t *testing.T) {
	if got := toggleTitle(true); got != "● Processing" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := toggleTitle(false); got != "○ Paused" {
		t.Errorf("toggleTitle(false) = %q", got)
	}

	tests := []struct {
		connections, active int
		want                string
	}{
		{0, 0, "No clients"},
		{2, 1, "Clients: 2, active: 1"},
		{1, 0, "Clients: 1, active: 0"},
	}
	for _, tt := range tests {
		if got := statusTitle(tt.connections, tt.active); got != tt.want {
			t.Errorf("statusTitle(%d, %d) = %q, want %q", tt.connections, tt.active, got, tt.want)
		}
	}
}

func TestNew_EnabledByDefault(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Error("tray should start enabled")
	}

	// No menu yet; must not panic
	tr.SetStatus(3, 1)
}
