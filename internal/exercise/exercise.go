// Package exercise implements per-exercise repetition counting.
package exercise

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ayusman/formcoach/internal/pose"
)

// ErrUnknownExercise is returned when an exercise type has no registered definition.
var ErrUnknownExercise = errors.New("unknown exercise")

// Type identifies an exercise. The values match the labels sent by pose clients.
type Type string

const (
	// PushUps counts push-ups from the left elbow angle.
	PushUps Type = "Push-ups"
	// Squats counts squats from the left knee angle.
	Squats Type = "Squats"
	// JumpingJacks counts jumping jacks from ankle spread and wrist height.
	JumpingJacks Type = "Jumping Jacks"
)

// Stage is the current phase of a movement cycle.
type Stage string

const (
	StageNone Stage = ""
	StageUp   Stage = "up"
	StageDown Stage = "down"
	StageOut  Stage = "out"
	StageIn   Stage = "in"
)

// Thresholds are the tunable transition limits of a counter.
//
// For angle-driven exercises Upper is the extended-joint angle in degrees and
// Lower the flexed-joint angle. For jumping jacks Upper is the ankle spread that
// counts as "out" and Lower the spread that counts as "in" (normalized units).
type Thresholds struct {
	Upper float64 `json:"upper" yaml:"upper"`
	Lower float64 `json:"lower" yaml:"lower"`
}

// Validate checks that the thresholds describe a usable hysteresis band.
func (t Thresholds) Validate() error {
	if t.Upper <= 0 || t.Lower <= 0 {
		return fmt.Errorf("thresholds must be positive (upper=%g, lower=%g)", t.Upper, t.Lower)
	}
	if t.Lower >= t.Upper {
		return fmt.Errorf("lower threshold %g must be below upper threshold %g", t.Lower, t.Upper)
	}
	return nil
}

// Step is the outcome of feeding one frame to a counter.
type Step struct {
	Stage    Stage
	Rep      bool   // true when this frame completed a repetition
	Feedback string // empty when the frame does not change the feedback
}

// Counter is a pure transition function. It returns false when the frame lacks
// the landmarks the exercise needs, in which case the caller keeps its state.
type Counter func(prev Stage, lm pose.Landmarks, th Thresholds) (Step, bool)

// Definition describes how one exercise is tracked.
type Definition struct {
	Type       Type
	Counter    Counter
	Thresholds Thresholds
	// Classified is true when the form model was trained on this exercise.
	Classified bool
}

// State is the counting state carried between frames.
type State struct {
	Stage Stage
	Reps  int
}

// Apply advances the state with one frame and returns the resulting step.
// The rep counter only ever grows here; resets belong to the session.
func (d Definition) Apply(s *State, lm pose.Landmarks) (Step, bool) {
	step, ok := d.Counter(s.Stage, lm, d.Thresholds)
	if !ok {
		return Step{Stage: s.Stage}, false
	}

	s.Stage = step.Stage
	if step.Rep {
		s.Reps++
	}

	return step, true
}

// DefaultThresholds returns the built-in thresholds for an exercise.
func DefaultThresholds(t Type) (Thresholds, bool) {
	switch t {
	case PushUps:
		return Thresholds{Upper: 160, Lower: 90}, true
	case Squats:
		return Thresholds{Upper: 160, Lower: 95}, true
	case JumpingJacks:
		return Thresholds{Upper: 0.3, Lower: 0.15}, true
	}
	return Thresholds{}, false
}

// Slug returns the URL-friendly form of the type, e.g. "jumping-jacks".
func (t Type) Slug() string {
	return strings.ReplaceAll(strings.ToLower(string(t)), " ", "-")
}

// ParseType resolves a client label or slug to a built-in exercise type.
func ParseType(s string) (Type, error) {
	for _, t := range Known() {
		if s == string(t) || strings.EqualFold(s, t.Slug()) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownExercise, s)
}

// Known returns every built-in exercise type in a stable order.
func Known() []Type {
	return []Type{PushUps, Squats, JumpingJacks}
}

// Registry maps exercise types to their definitions.
// It is safe for concurrent use.
type Registry struct {
	defs map[Type]Definition
	mu   sync.RWMutex
}

// NewRegistry creates a Registry holding the built-in exercises with default thresholds.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[Type]Definition)}

	for _, t := range Known() {
		th, _ := DefaultThresholds(t)
		r.defs[t] = Definition{
			Type:       t,
			Counter:    counters[t],
			Thresholds: th,
			Classified: t == PushUps,
		}
	}

	return r
}

// Lookup returns the definition for an exercise type.
func (r *Registry) Lookup(t Type) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.defs[t]
	return d, ok
}

// SetThresholds replaces the thresholds of a registered exercise.
// Sessions pick up the change the next time they start.
func (r *Registry) SetThresholds(t Type, th Thresholds) error {
	if err := th.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.defs[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExercise, t)
	}
	d.Thresholds = th
	r.defs[t] = d

	return nil
}

// ResetThresholds restores the default thresholds of an exercise.
func (r *Registry) ResetThresholds(t Type) error {
	th, ok := DefaultThresholds(t)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownExercise, t)
	}
	return r.SetThresholds(t, th)
}

// List returns all definitions sorted by type.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Type < defs[j].Type
	})

	return defs
}
