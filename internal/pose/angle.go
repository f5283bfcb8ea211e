package pose

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NeutralAngle is the angle reported when a joint cannot be measured.
const NeutralAngle = 180.0

// angleEpsilon keeps the 3D cosine denominator away from zero.
const angleEpsilon = 1e-6

// Angle2D returns the angle in degrees at vertex b between the rays b->a and b->c,
// using only the x and y coordinates. The result is folded into [0, 180].
func Angle2D(a, b, c Landmark) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	angle := math.Abs(radians * 180.0 / math.Pi)

	if angle > 180.0 {
		angle = 360 - angle
	}

	return angle
}

// Angle3D returns the angle in degrees at vertex b between the 3D vectors b->a and b->c.
// Any non-finite input or result yields NeutralAngle.
func Angle3D(a, b, c Landmark) float64 {
	va, vb, vc := vec3(a), vec3(b), vec3(c)
	for _, v := range []mgl64.Vec3{va, vb, vc} {
		if !finite(v) {
			return NeutralAngle
		}
	}

	ba := va.Sub(vb)
	bc := vc.Sub(vb)

	cosine := ba.Dot(bc) / (ba.Len()*bc.Len() + angleEpsilon)
	cosine = mgl64.Clamp(cosine, -1.0, 1.0)

	angle := mgl64.RadToDeg(math.Acos(cosine))
	if math.IsNaN(angle) {
		return NeutralAngle
	}

	return angle
}

func vec3(l Landmark) mgl64.Vec3 {
	return mgl64.Vec3{l.X, l.Y, l.Z}
}

func finite(v mgl64.Vec3) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
