package exercise

import (
	"math"

	"github.com/ayusman/formcoach/internal/pose"
)

var counters = map[Type]Counter{
	PushUps:      countPushUp,
	Squats:       countSquat,
	JumpingJacks: countJumpingJack,
}

// countPushUp tracks the left elbow (shoulder-elbow-wrist).
func countPushUp(prev Stage, lm pose.Landmarks, th Thresholds) (Step, bool) {
	return countAngle(prev, lm, th, "Good push!",
		pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist)
}

// countSquat tracks the left knee (hip-knee-ankle).
func countSquat(prev Stage, lm pose.Landmarks, th Thresholds) (Step, bool) {
	return countAngle(prev, lm, th, "Good Squat!",
		pose.LeftHip, pose.LeftKnee, pose.LeftAnkle)
}

// countAngle implements the shared up/down cycle: the joint opening past Upper
// is "up", and closing below Lower while up is "down" and one repetition.
func countAngle(prev Stage, lm pose.Landmarks, th Thresholds, repFeedback string, a, b, c int) (Step, bool) {
	pts, ok := lm.LookupAll(a, b, c)
	if !ok {
		return Step{}, false
	}

	angle := pose.Angle3D(pts[0], pts[1], pts[2])
	step := Step{Stage: prev}

	if angle > th.Upper {
		step.Stage = StageUp
	}
	if angle < th.Lower && step.Stage == StageUp {
		step.Stage = StageDown
		step.Rep = true
		step.Feedback = repFeedback
	}

	return step, true
}

// countJumpingJack tracks ankle spread and wrist height relative to the nose.
func countJumpingJack(prev Stage, lm pose.Landmarks, th Thresholds) (Step, bool) {
	pts, ok := lm.LookupAll(pose.LeftAnkle, pose.RightAnkle, pose.LeftWrist, pose.RightWrist, pose.Nose)
	if !ok {
		return Step{}, false
	}
	leftAnkle, rightAnkle, leftWrist, rightWrist, nose := pts[0], pts[1], pts[2], pts[3], pts[4]

	spread := math.Abs(leftAnkle.X - rightAnkle.X)
	handsUp := leftWrist.Y < nose.Y && rightWrist.Y < nose.Y
	handsDown := leftWrist.Y > nose.Y && rightWrist.Y > nose.Y

	step := Step{Stage: prev}

	if spread > th.Upper && handsUp {
		step.Stage = StageOut
		step.Feedback = "In!"
	}
	if spread < th.Lower && handsDown && step.Stage == StageOut {
		step.Stage = StageIn
		step.Rep = true
		step.Feedback = "Good Jack!"
	}

	return step, true
}
