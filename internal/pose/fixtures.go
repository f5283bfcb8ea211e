package pose

import (
	"math"
	"strconv"
)

// Preset landmark sets used by tests and the demo client. All coordinates are
// normalized image coordinates with Y growing downwards.

// StandingLandmarks returns a full 33-point set for an upright, arms-down pose.
func StandingLandmarks() Landmarks {
	lm := make(Landmarks, NumLandmarks)

	// Head
	set(lm, Nose, 0.50, 0.15, 0)
	set(lm, LeftEyeInner, 0.51, 0.13, 0)
	set(lm, LeftEye, 0.52, 0.13, 0)
	set(lm, LeftEyeOuter, 0.53, 0.13, 0)
	set(lm, RightEyeInner, 0.49, 0.13, 0)
	set(lm, RightEye, 0.48, 0.13, 0)
	set(lm, RightEyeOuter, 0.47, 0.13, 0)
	set(lm, LeftEar, 0.54, 0.14, 0)
	set(lm, RightEar, 0.46, 0.14, 0)
	set(lm, MouthLeft, 0.51, 0.17, 0)
	set(lm, MouthRight, 0.49, 0.17, 0)

	// Arms hanging at the sides
	set(lm, LeftShoulder, 0.58, 0.25, 0)
	set(lm, RightShoulder, 0.42, 0.25, 0)
	set(lm, LeftElbow, 0.59, 0.38, 0)
	set(lm, RightElbow, 0.41, 0.38, 0)
	set(lm, LeftWrist, 0.60, 0.50, 0)
	set(lm, RightWrist, 0.40, 0.50, 0)
	set(lm, LeftPinky, 0.60, 0.53, 0)
	set(lm, RightPinky, 0.40, 0.53, 0)
	set(lm, LeftIndex, 0.61, 0.53, 0)
	set(lm, RightIndex, 0.39, 0.53, 0)
	set(lm, LeftThumb, 0.59, 0.52, 0)
	set(lm, RightThumb, 0.41, 0.52, 0)

	// Legs straight, feet together
	set(lm, LeftHip, 0.55, 0.52, 0)
	set(lm, RightHip, 0.45, 0.52, 0)
	set(lm, LeftKnee, 0.55, 0.70, 0)
	set(lm, RightKnee, 0.45, 0.70, 0)
	set(lm, LeftAnkle, 0.55, 0.88, 0)
	set(lm, RightAnkle, 0.45, 0.88, 0)
	set(lm, LeftHeel, 0.55, 0.90, 0)
	set(lm, RightHeel, 0.45, 0.90, 0)
	set(lm, LeftFootIndex, 0.56, 0.92, 0)
	set(lm, RightFootIndex, 0.44, 0.92, 0)

	return lm
}

// PushUpLandmarks returns a full pose whose left elbow (shoulder-elbow-wrist)
// forms the given angle in degrees.
func PushUpLandmarks(elbowAngle float64) Landmarks {
	lm := StandingLandmarks()

	shoulder := Landmark{X: 0.40, Y: 0.50, Z: 0, Visibility: 0.99}
	elbow := Landmark{X: 0.40, Y: 0.60, Z: 0, Visibility: 0.99}
	lm[strconv.Itoa(LeftShoulder)] = shoulder
	lm[strconv.Itoa(LeftElbow)] = elbow
	lm[strconv.Itoa(LeftWrist)] = bend(elbow, elbowAngle, 0.10)

	return lm
}

// SquatLandmarks returns a full pose whose left knee (hip-knee-ankle) forms
// the given angle in degrees.
func SquatLandmarks(kneeAngle float64) Landmarks {
	lm := StandingLandmarks()

	hip := Landmark{X: 0.55, Y: 0.50, Z: 0, Visibility: 0.99}
	knee := Landmark{X: 0.55, Y: 0.70, Z: 0, Visibility: 0.99}
	lm[strconv.Itoa(LeftHip)] = hip
	lm[strconv.Itoa(LeftKnee)] = knee
	lm[strconv.Itoa(LeftAnkle)] = bend(knee, kneeAngle, 0.20)

	return lm
}

// JumpingJackLandmarks returns a pose with the ankles feetDist apart and both
// wrists either above or below the nose.
func JumpingJackLandmarks(feetDist float64, wristsUp bool) Landmarks {
	lm := StandingLandmarks()

	set(lm, LeftAnkle, 0.50+feetDist/2, 0.88, 0)
	set(lm, RightAnkle, 0.50-feetDist/2, 0.88, 0)

	wristY := 0.50
	if wristsUp {
		wristY = 0.05
	}
	set(lm, LeftWrist, 0.70, wristY, 0)
	set(lm, RightWrist, 0.30, wristY, 0)

	return lm
}

// Named returns a copy of the landmarks keyed by landmark name instead of index.
func (l Landmarks) Named() Landmarks {
	out := make(Landmarks, len(l))
	for i := 0; i < NumLandmarks; i++ {
		if lm, ok := l.Lookup(i); ok {
			out[Names[i]] = lm
		}
	}
	return out
}

// Without returns a copy of the landmarks with the given indices removed.
func (l Landmarks) Without(indices ...int) Landmarks {
	out := make(Landmarks, len(l))
	for k, v := range l {
		out[k] = v
	}
	for _, idx := range indices {
		delete(out, strconv.Itoa(idx))
		delete(out, Names[idx])
	}
	return out
}

func set(lm Landmarks, index int, x, y, z float64) {
	lm[strconv.Itoa(index)] = Landmark{X: x, Y: y, Z: z, Visibility: 0.99}
}

// bend places a point at distance r from the vertex so that the angle between
// "straight up" and the new ray is deg degrees.
func bend(vertex Landmark, deg, r float64) Landmark {
	rad := deg * math.Pi / 180.0
	return Landmark{
		X:          vertex.X + r*math.Sin(rad),
		Y:          vertex.Y - r*math.Cos(rad),
		Z:          vertex.Z,
		Visibility: 0.99,
	}
}
