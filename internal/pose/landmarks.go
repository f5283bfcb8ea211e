// Package pose provides body landmark types and geometry helpers for exercise tracking.
package pose

import (
	"math"
	"strconv"
)

// Body landmark indices following the MediaPipe Pose (BlazePose) convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// Names maps each landmark index to the snake_case name used by pose clients.
var Names = [NumLandmarks]string{
	"nose",
	"left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear",
	"mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_pinky", "right_pinky",
	"left_index", "right_index",
	"left_thumb", "right_thumb",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
	"left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// Landmark is a single body keypoint in normalized image coordinates.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Landmarks maps a landmark identifier to its position for one frame.
// Identifiers are either the decimal index ("11") or the name ("left_shoulder").
type Landmarks map[string]Landmark

// Frame is one landmark payload received from a pose client.
type Frame struct {
	Type      string    `json:"type"`
	Landmarks Landmarks `json:"landmarks"`
	Timestamp int64     `json:"timestamp,omitempty"` // milliseconds, optional
}

// Lookup returns the landmark at the given index, trying the numeric key first
// and then the landmark name.
func (l Landmarks) Lookup(index int) (Landmark, bool) {
	if l == nil || index < 0 || index >= NumLandmarks {
		return Landmark{}, false
	}
	if lm, ok := l[strconv.Itoa(index)]; ok {
		return lm, true
	}
	lm, ok := l[Names[index]]
	return lm, ok
}

// LookupAll returns the landmarks for all indices, or false if any is missing.
func (l Landmarks) LookupAll(indices ...int) ([]Landmark, bool) {
	out := make([]Landmark, len(indices))
	for i, idx := range indices {
		lm, ok := l.Lookup(idx)
		if !ok {
			return nil, false
		}
		out[i] = lm
	}
	return out, true
}

// BodyLandmarks must all be visible for the whole body to be in frame.
var BodyLandmarks = []int{LeftShoulder, RightShoulder, LeftHip, RightHip, LeftAnkle, RightAnkle}

// Visible reports whether every listed landmark is present with a visibility
// score above min.
func (l Landmarks) Visible(indices []int, min float64) bool {
	for _, idx := range indices {
		lm, ok := l.Lookup(idx)
		if !ok || lm.Visibility <= min {
			return false
		}
	}
	return true
}

// Distance2D calculates the Euclidean distance between two landmarks in the image plane.
func Distance2D(a, b Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Distance3D calculates the Euclidean distance between two landmarks.
func Distance3D(a, b Landmark) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
