// Package window provides fixed-capacity sliding windows of per-frame features.
package window

import "github.com/ayusman/formcoach/internal/features"

// DefaultSize is the number of frames the form model consumes at once.
const DefaultSize = 20

// Buffer is a bounded FIFO that keeps only the most recent values.
type Buffer[T any] struct {
	items    []T
	capacity int
}

// NewBuffer creates a Buffer holding at most capacity values.
// Capacities below 1 are raised to 1.
func NewBuffer[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a value, evicting the oldest one when the buffer is over capacity.
func (b *Buffer[T]) Push(v T) {
	if len(b.items) >= b.capacity {
		// Shift left by 1, dropping the oldest value
		copy(b.items, b.items[1:])
		b.items = b.items[:b.capacity-1]
	}
	b.items = append(b.items, v)
}

// Len returns the number of buffered values.
func (b *Buffer[T]) Len() int { return len(b.items) }

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int { return b.capacity }

// Full reports whether the buffer holds exactly Cap values.
func (b *Buffer[T]) Full() bool { return len(b.items) == b.capacity }

// Items returns a copy of the buffered values, oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Reset empties the buffer.
func (b *Buffer[T]) Reset() {
	b.items = b.items[:0]
}

// Window pairs the keypoint and angle buffers so they always advance together.
type Window struct {
	keypoints *Buffer[[features.NumKeypoints]float64]
	angles    *Buffer[[features.NumAngles]float64]
}

// New creates a Window of the given size.
func New(size int) *Window {
	return &Window{
		keypoints: NewBuffer[[features.NumKeypoints]float64](size),
		angles:    NewBuffer[[features.NumAngles]float64](size),
	}
}

// Push adds one frame's features to both buffers.
func (w *Window) Push(v features.Vector) {
	w.keypoints.Push(v.Keypoints)
	w.angles.Push(v.Angles)
}

// Len returns the number of buffered frames.
func (w *Window) Len() int { return w.keypoints.Len() }

// Size returns the window capacity in frames.
func (w *Window) Size() int { return w.keypoints.Cap() }

// Full reports whether the window holds Size frames.
func (w *Window) Full() bool { return w.keypoints.Full() }

// Keypoints returns the buffered keypoint vectors as a Len x 99 matrix.
func (w *Window) Keypoints() [][]float64 {
	return rows(w.keypoints.Items(), func(r [features.NumKeypoints]float64) []float64 { return r[:] })
}

// Angles returns the buffered angle vectors as a Len x 8 matrix.
func (w *Window) Angles() [][]float64 {
	return rows(w.angles.Items(), func(r [features.NumAngles]float64) []float64 { return r[:] })
}

// Reset empties both buffers.
func (w *Window) Reset() {
	w.keypoints.Reset()
	w.angles.Reset()
}

func rows[T any](items []T, slice func(T) []float64) [][]float64 {
	out := make([][]float64, len(items))
	for i, item := range items {
		out[i] = slice(item)
	}
	return out
}
