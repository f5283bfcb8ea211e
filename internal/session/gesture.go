package session

import (
	"time"

	"github.com/ayusman/formcoach/internal/pose"
)

// GestureConfig configures the hold-still stop gesture. A zero Hold disables it.
type GestureConfig struct {
	// Hold is how long the landmark must stay still.
	Hold time.Duration
	// Tolerance is the largest frame-to-frame displacement still counted as still.
	Tolerance float64
	// Landmark is the tracked landmark index.
	Landmark int
}

// DefaultGestureConfig returns a five second right-wrist hold.
func DefaultGestureConfig() GestureConfig {
	return GestureConfig{
		Hold:      5 * time.Second,
		Tolerance: 0.02,
		Landmark:  pose.RightWrist,
	}
}

// Enabled reports whether the gesture is configured.
func (c GestureConfig) Enabled() bool {
	return c.Hold > 0
}

// HoldTracker accumulates the time a landmark stays within tolerance of its
// previous position.
type HoldTracker struct {
	config   GestureConfig
	prev     pose.Landmark
	last     time.Time
	held     time.Duration
	tracking bool
}

// NewHoldTracker creates a tracker for config.
func NewHoldTracker(config GestureConfig) *HoldTracker {
	return &HoldTracker{config: config}
}

// Update feeds one observation and returns the hold progress in percent (0..100).
// Any displacement above the tolerance restarts the hold.
func (h *HoldTracker) Update(p pose.Landmark, ts time.Time) int {
	if !h.config.Enabled() {
		return 0
	}

	if !h.tracking {
		h.prev, h.last, h.held, h.tracking = p, ts, 0, true
		return 0
	}

	moved := pose.Distance2D(p, h.prev) > h.config.Tolerance
	h.prev = p

	if moved {
		h.held = 0
		h.last = ts
		return 0
	}

	if dt := ts.Sub(h.last); dt > 0 {
		h.held += dt
	}
	h.last = ts

	return h.Progress()
}

// Progress returns the current hold progress in percent.
func (h *HoldTracker) Progress() int {
	if !h.config.Enabled() {
		return 0
	}
	p := int(h.held * 100 / h.config.Hold)
	if p > 100 {
		p = 100
	}
	return p
}

// Reset forgets the tracked position and elapsed time.
func (h *HoldTracker) Reset() {
	h.tracking = false
	h.held = 0
}
