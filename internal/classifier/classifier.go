// Package classifier turns full feature windows into form-error labels.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/formcoach/internal/window"
)

// DefaultConfidence is the probability above which a label counts as present.
const DefaultConfidence = 0.7

// Form-error labels produced by the trained push-up model, in output order.
const (
	HipsSagging = "hips_sagging"
	HipsPiking  = "hips_piking"
)

var (
	// ErrWindowNotFull is returned when Classify is called before the window has filled up.
	ErrWindowNotFull = errors.New("window not full")

	// ErrLabelCount is returned when the model output does not match the label list.
	ErrLabelCount = errors.New("model output does not match label count")
)

// Labels returns the default label list.
func Labels() []string {
	return []string{HipsSagging, HipsPiking}
}

// DefaultMessages maps each label to the cue shown to the user.
func DefaultMessages() map[string]string {
	return map[string]string{
		HipsSagging: "Lift Hips!",
		HipsPiking:  "Lower Hips!",
	}
}

// InferenceError wraps a failure of the underlying model.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one classification.
type Result struct {
	Probabilities map[string]float64
	// Active holds the labels above the confidence threshold, in label order.
	Active []string
}

// Good reports whether no form error was detected.
func (r Result) Good() bool {
	return len(r.Active) == 0
}

// Has reports whether label is active.
func (r Result) Has(label string) bool {
	for _, l := range r.Active {
		if l == label {
			return true
		}
	}
	return false
}

// Feedback returns the cue for the first active label in priority order.
// It returns "" when the result is good or no active label has a message.
func (r Result) Feedback(priority []string, messages map[string]string) string {
	for _, label := range priority {
		if !r.Has(label) {
			continue
		}
		if msg, ok := messages[label]; ok {
			return msg
		}
	}
	return ""
}

// Classifier adapts a Model to the window and label contract.
// It holds no per-session state and may be shared.
type Classifier struct {
	model      Model
	labels     []string
	confidence float64
	priority   []string
	messages   map[string]string
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLabels overrides the label list. The order must match the model output.
func WithLabels(labels ...string) Option {
	return func(c *Classifier) {
		c.labels = labels
	}
}

// WithConfidence overrides the activation threshold.
func WithConfidence(confidence float64) Option {
	return func(c *Classifier) {
		if confidence > 0 && confidence < 1 {
			c.confidence = confidence
		}
	}
}

// WithPriority sets the order in which simultaneous errors are reported.
func WithPriority(labels ...string) Option {
	return func(c *Classifier) {
		c.priority = labels
	}
}

// WithMessages overrides the label cues.
func WithMessages(messages map[string]string) Option {
	return func(c *Classifier) {
		c.messages = messages
	}
}

// New creates a Classifier around model.
func New(model Model, opts ...Option) *Classifier {
	c := &Classifier{
		model:      model,
		labels:     Labels(),
		confidence: DefaultConfidence,
		messages:   DefaultMessages(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.priority == nil {
		c.priority = c.labels
	}
	return c
}

// Enabled reports whether a model is attached. A nil Classifier is disabled.
func (c *Classifier) Enabled() bool {
	return c != nil && c.model != nil
}

// Confidence returns the activation threshold.
func (c *Classifier) Confidence() float64 {
	return c.confidence
}

// Labels returns the label list in model output order.
func (c *Classifier) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

// Classify runs the model on a full window.
func (c *Classifier) Classify(ctx context.Context, w *window.Window) (Result, error) {
	if !c.Enabled() {
		return Result{}, ErrModelNotFound
	}
	if w == nil || !w.Full() {
		return Result{}, ErrWindowNotFull
	}

	probs, err := c.model.Predict(ctx, w.Keypoints(), w.Angles())
	if err != nil {
		return Result{}, &InferenceError{Err: err}
	}
	if len(probs) != len(c.labels) {
		return Result{}, fmt.Errorf("%w: got %d values for %d labels", ErrLabelCount, len(probs), len(c.labels))
	}

	res := Result{Probabilities: make(map[string]float64, len(probs))}
	for i, p := range probs {
		label := c.labels[i]
		res.Probabilities[label] = p
		if p > c.confidence {
			res.Active = append(res.Active, label)
		}
	}

	return res, nil
}

// Feedback returns the cue for res using the classifier's priority and messages.
func (c *Classifier) Feedback(res Result) string {
	return res.Feedback(c.priority, c.messages)
}

// HumanLabel converts "hips_sagging" to "Hips Sagging".
func HumanLabel(label string) string {
	words := strings.Fields(strings.ReplaceAll(label, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
