// Package session drives one client's workout: rep counting, form
// classification and the end-of-session report.
package session

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcoach/internal/classifier"
	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/features"
	"github.com/ayusman/formcoach/internal/metrics"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/report"
	"github.com/ayusman/formcoach/internal/window"
)

// Feedback messages owned by the session.
const (
	FeedbackStart     = "Go!"
	FeedbackEnded     = "Session Ended"
	FeedbackIdle      = "Click Start to begin"
	FeedbackGoodForm  = "Good Form"
	FeedbackPushUp    = "Push Up!"
	FeedbackAdjustCam = "Adjust camera to view whole body"
)

// Phase is the lifecycle state of a session.
type Phase int

const (
	PhaseInactive Phase = iota
	PhaseActive
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseActive:
		return "active"
	case PhaseCompleted:
		return "completed"
	default:
		return "inactive"
	}
}

// Config holds the dependencies shared by sessions.
type Config struct {
	// Registry supplies exercise definitions. Nil uses the built-in defaults.
	Registry *exercise.Registry

	// Classifier scores full windows. Nil runs in counting-only mode.
	Classifier *classifier.Classifier

	// WindowSize is the number of frames per classification window.
	WindowSize int

	// MinVisibility enables the whole-body check when above zero.
	MinVisibility float64

	// StopGesture optionally ends the session on a held-still landmark.
	StopGesture GestureConfig

	Metrics *metrics.Metrics
	Logger  *log.Entry

	// OnComplete is called once each time the session reaches the completed phase.
	OnComplete func(Summary)
}

// Summary describes a completed session.
type Summary struct {
	ID       string
	Exercise exercise.Type
	Reps     int
	Report   report.Report
}

// Snapshot is the status returned after every command.
type Snapshot struct {
	Reps            int            `json:"reps"`
	Feedback        string         `json:"feedback"`
	Stage           *string        `json:"stage"`
	Completed       bool           `json:"completed"`
	IsActive        bool           `json:"isActive"`
	GestureProgress int            `json:"gestureProgress"`
	Report          *report.Report `json:"report"`
}

// Session holds all mutable state for one client. It is not safe for
// concurrent use; frames must be processed one at a time.
type Session struct {
	id     string
	config Config
	log    *log.Entry

	phase    Phase
	exercise exercise.Type
	def      exercise.Definition
	known    bool

	state        exercise.State
	feedback     string
	repFeedback  string
	window       *window.Window
	aggregator   report.Aggregator
	hold         *HoldTracker
	holdProgress int
}

// New creates an inactive session.
func New(id string, config Config) *Session {
	if config.Registry == nil {
		config.Registry = exercise.NewRegistry()
	}
	if config.WindowSize <= 0 {
		config.WindowSize = window.DefaultSize
	}

	logger := config.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Session{
		id:       id,
		config:   config,
		log:      logger.WithField("session", id),
		feedback: FeedbackIdle,
		window:   window.New(config.WindowSize),
		hold:     NewHoldTracker(config.StopGesture),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the lifecycle phase.
func (s *Session) Phase() Phase { return s.phase }

// Exercise returns the exercise type of the most recent frame.
func (s *Session) Exercise() exercise.Type { return s.exercise }

// Start begins a fresh session for the current exercise.
func (s *Session) Start() Snapshot {
	s.reset()
	s.setPhase(PhaseActive)
	s.feedback = FeedbackStart

	s.log.WithField("exercise", s.exercise).Info("Session started")
	return s.Snapshot()
}

// Stop completes an active session. It has no effect in other phases.
func (s *Session) Stop() Snapshot {
	if s.phase != PhaseActive {
		return s.Snapshot()
	}

	s.setPhase(PhaseCompleted)
	s.feedback = FeedbackEnded

	summary := Summary{
		ID:       s.id,
		Exercise: s.exercise,
		Reps:     s.state.Reps,
		Report:   s.aggregator.Build(),
	}
	s.log.WithFields(log.Fields{
		"exercise": s.exercise,
		"reps":     summary.Reps,
		"score":    summary.Report.Score,
	}).Info("Session completed")

	if s.config.OnComplete != nil {
		s.config.OnComplete(summary)
	}

	return s.Snapshot()
}

// Close releases the session. An active session is abandoned without a report.
func (s *Session) Close() {
	if s.phase == PhaseActive {
		s.config.Metrics.SessionEnded(false)
	}
	s.phase = PhaseInactive
}

// ProcessFrame feeds one landmark frame through the pipeline and returns the
// resulting status. It never fails; problems are logged and reflected in the feedback.
func (s *Session) ProcessFrame(ctx context.Context, frame pose.Frame) Snapshot {
	if typ := exercise.Type(frame.Type); typ != s.exercise {
		s.switchExercise(typ)
	}

	if s.phase == PhaseActive {
		s.process(ctx, frame)
	}

	if s.phase == PhaseInactive {
		s.feedback = FeedbackIdle
	}

	return s.Snapshot()
}

// Snapshot returns the current status.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Reps:            s.state.Reps,
		Feedback:        s.feedback,
		Completed:       s.phase == PhaseCompleted,
		IsActive:        s.phase == PhaseActive,
		GestureProgress: s.holdProgress,
	}
	if s.state.Stage != exercise.StageNone {
		stage := string(s.state.Stage)
		snap.Stage = &stage
	}
	if snap.Completed {
		r := s.aggregator.Build()
		snap.Report = &r
	}
	return snap
}

// switchExercise resets everything for a new exercise type. An active
// session restarts; a completed one returns to inactive.
func (s *Session) switchExercise(typ exercise.Type) {
	s.log.WithFields(log.Fields{
		"from": s.exercise,
		"to":   typ,
	}).Debug("Exercise changed")

	s.exercise = typ
	s.reset()

	if s.phase == PhaseActive {
		s.feedback = FeedbackStart
		return
	}
	s.setPhase(PhaseInactive)
}

func (s *Session) reset() {
	s.def, s.known = s.config.Registry.Lookup(s.exercise)
	s.state = exercise.State{}
	s.repFeedback = ""
	s.window.Reset()
	s.aggregator.Reset()
	s.hold.Reset()
	s.holdProgress = 0
}

func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	if p == PhaseActive {
		s.config.Metrics.SessionStarted()
	} else if s.phase == PhaseActive {
		s.config.Metrics.SessionEnded(p == PhaseCompleted)
	}
	s.phase = p
}

func (s *Session) process(ctx context.Context, frame pose.Frame) {
	if !s.known {
		s.aggregator.AddFrame()
		return
	}

	lm := frame.Landmarks
	if s.config.MinVisibility > 0 && !lm.Visible(pose.BodyLandmarks, s.config.MinVisibility) {
		s.feedback = FeedbackAdjustCam
		return
	}

	s.aggregator.AddFrame()
	s.config.Metrics.FrameProcessed(string(s.exercise))

	if step, ok := s.def.Apply(&s.state, lm); ok {
		if step.Feedback != "" {
			s.feedback = step.Feedback
		}
		if step.Rep {
			s.repFeedback = step.Feedback
			s.config.Metrics.RepCounted(string(s.exercise))
			if !s.def.Classified {
				s.aggregator.AddScore(1)
			}
		}
	}

	s.window.Push(features.Build(lm))

	if s.def.Classified && s.config.Classifier.Enabled() && s.window.Full() {
		s.classify(ctx)
	}

	if s.config.StopGesture.Enabled() {
		s.trackGesture(frame)
	}
}

func (s *Session) classify(ctx context.Context) {
	start := time.Now()
	res, err := s.config.Classifier.Classify(ctx, s.window)
	elapsed := time.Since(start)

	if err != nil {
		var inferErr *classifier.InferenceError
		if errors.As(err, &inferErr) {
			s.log.WithError(inferErr.Err).Warn("Form inference failed, skipping frame")
		} else {
			s.log.WithError(err).Warn("Form classification skipped")
		}
		s.config.Metrics.Inference(metrics.ResultFail, elapsed)
		return
	}

	for _, label := range res.Active {
		s.aggregator.AddMistake(classifier.HumanLabel(label))
	}

	if res.Good() {
		s.config.Metrics.Inference(metrics.ResultGood, elapsed)
		s.aggregator.AddGoodFrame()

		switch {
		case s.state.Reps > 0 && s.repFeedback != "" && s.feedback == s.repFeedback:
			// keep the rep cue
		case s.state.Stage == exercise.StageDown:
			s.feedback = FeedbackPushUp
		default:
			s.feedback = FeedbackGoodForm
		}
		return
	}

	s.config.Metrics.Inference(metrics.ResultError, elapsed)
	s.aggregator.AddScore(0)
	if msg := s.config.Classifier.Feedback(res); msg != "" {
		s.feedback = msg
	}
}

func (s *Session) trackGesture(frame pose.Frame) {
	p, ok := frame.Landmarks.Lookup(s.config.StopGesture.Landmark)
	if !ok {
		s.hold.Reset()
		s.holdProgress = 0
		return
	}

	ts := time.Now()
	if frame.Timestamp > 0 {
		ts = time.UnixMilli(frame.Timestamp)
	}

	s.holdProgress = s.hold.Update(p, ts)
	if s.holdProgress >= 100 {
		s.log.Info("Stop gesture held")
		s.Stop()
	}
}
