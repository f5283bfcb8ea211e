// Package features converts raw pose landmarks into the fixed-size numeric
// vectors consumed by the form classifier.
package features

import "github.com/ayusman/formcoach/internal/pose"

const (
	// NumKeypoints is the length of the flattened keypoint vector (33 landmarks x 3 coordinates).
	NumKeypoints = pose.NumLandmarks * 3
	// NumAngles is the number of joint angles in the angle vector.
	NumAngles = 8
)

// AngleTriplets lists the (a, vertex, c) landmark indices of every joint angle,
// in the order the form model was trained on. Do not reorder.
var AngleTriplets = [NumAngles][3]int{
	// Elbows
	{pose.LeftShoulder, pose.LeftElbow, pose.LeftWrist},
	{pose.RightShoulder, pose.RightElbow, pose.RightWrist},
	// Shoulders
	{pose.LeftElbow, pose.LeftShoulder, pose.LeftHip},
	{pose.RightElbow, pose.RightShoulder, pose.RightHip},
	// Hips
	{pose.LeftShoulder, pose.LeftHip, pose.LeftKnee},
	{pose.RightShoulder, pose.RightHip, pose.RightKnee},
	// Knees
	{pose.LeftHip, pose.LeftKnee, pose.LeftAnkle},
	{pose.RightHip, pose.RightKnee, pose.RightAnkle},
}

// Vector is the per-frame feature pair.
type Vector struct {
	Keypoints [NumKeypoints]float64
	Angles    [NumAngles]float64
}

// Build derives the feature vectors for one frame.
// Missing landmarks become zero coordinates and unmeasurable angles become
// pose.NeutralAngle; Build never fails.
func Build(lm pose.Landmarks) Vector {
	var v Vector

	for i := 0; i < pose.NumLandmarks; i++ {
		p, ok := lm.Lookup(i)
		if !ok {
			continue
		}
		v.Keypoints[i*3] = p.X
		v.Keypoints[i*3+1] = p.Y
		v.Keypoints[i*3+2] = p.Z
	}

	for i, triplet := range AngleTriplets {
		pts, ok := lm.LookupAll(triplet[0], triplet[1], triplet[2])
		if !ok {
			v.Angles[i] = pose.NeutralAngle
			continue
		}
		v.Angles[i] = pose.Angle2D(pts[0], pts[1], pts[2])
	}

	return v
}
