// Package scenario provides scripted workout sessions for end-to-end tests.
package scenario

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/pose"
)

//go:embed sessions/*.yaml
var sessionsFS embed.FS

// FrameIntervalMs is the timestamp spacing of generated frames (about 30 FPS).
const FrameIntervalMs = 33

// Step is a run of identical poses.
type Step struct {
	// Angle is the tracked joint angle for push-ups and squats.
	Angle float64 `yaml:"angle"`

	// Spread and HandsUp describe a jumping jack pose.
	Spread  float64 `yaml:"spread"`
	HandsUp bool    `yaml:"hands_up"`

	Repeat int `yaml:"repeat"`
}

// Expect is the report a script must produce.
type Expect struct {
	Reps        int      `yaml:"reps"`
	Score       int      `yaml:"score"`
	Mistakes    []string `yaml:"mistakes"`
	TotalFrames int      `yaml:"total_frames"`
	GoodFrames  int      `yaml:"good_frames"`
	Summary     string   `yaml:"summary"`
}

// Script is one recorded-style workout.
type Script struct {
	Name     string        `yaml:"name"`
	Exercise exercise.Type `yaml:"exercise"`

	// Model holds the probabilities a mock form model returns, if any.
	Model []float64 `yaml:"model"`

	Steps  []Step `yaml:"steps"`
	Expect Expect `yaml:"expect"`
}

// Load loads a script by file name without extension, e.g. "squats".
func Load(name string) (*Script, error) {
	data, err := sessionsFS.ReadFile(path.Join("sessions", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("load script %s: %w", name, err)
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", name, err)
	}
	if _, err := exercise.ParseType(string(s.Exercise)); err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	return &s, nil
}

// Names lists the available scripts in a stable order.
func Names() ([]string, error) {
	entries, err := sessionsFS.ReadDir("sessions")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// Frames expands the script into timestamped landmark frames.
func (s *Script) Frames() []pose.Frame {
	var frames []pose.Frame
	ts := int64(1)

	for _, step := range s.Steps {
		for i := 0; i < step.Repeat; i++ {
			frames = append(frames, pose.Frame{
				Type:      string(s.Exercise),
				Landmarks: s.landmarks(step),
				Timestamp: ts,
			})
			ts += FrameIntervalMs
		}
	}
	return frames
}

func (s *Script) landmarks(step Step) pose.Landmarks {
	switch s.Exercise {
	case exercise.PushUps:
		return pose.PushUpLandmarks(step.Angle)
	case exercise.Squats:
		return pose.SquatLandmarks(step.Angle)
	case exercise.JumpingJacks:
		return pose.JumpingJackLandmarks(step.Spread, step.HandsUp)
	}
	return pose.StandingLandmarks()
}
