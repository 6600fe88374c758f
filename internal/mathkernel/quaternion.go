package mathkernel

import "math"

// Quaternion is a Hamilton-convention unit rotation q = (w, x, y, z) that
// rotates earth-frame vectors into the body frame (spec.md §3).
type Quaternion struct {
	W, X, Y, Z float64
}

// Identity is the no-rotation quaternion.
var Identity = Quaternion{W: 1}

// Multiply returns q ⊗ other (Hamilton product).
func (q Quaternion) Multiply(other Quaternion) Quaternion {
	return Quaternion{
		W: q.W*other.W - q.X*other.X - q.Y*other.Y - q.Z*other.Z,
		X: q.W*other.X + q.X*other.W + q.Y*other.Z - q.Z*other.Y,
		Y: q.W*other.Y - q.X*other.Z + q.Y*other.W + q.Z*other.X,
		Z: q.W*other.Z + q.X*other.Y - q.Y*other.X + q.Z*other.W,
	}
}

// Inverse returns the inverse rotation. For a unit quaternion this is the
// conjugate; Norm() is factored in so a slightly denormalized input still
// inverts correctly.
func (q Quaternion) Inverse() Quaternion {
	n2 := q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z
	if n2 == 0 {
		return Identity
	}
	return Quaternion{W: q.W / n2, X: -q.X / n2, Y: -q.Y / n2, Z: -q.Z / n2}
}

// Norm returns the quaternion's Euclidean norm, ‖q‖.
func (q Quaternion) Norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Canonicalize flips the sign of q so that W >= 0, keeping the
// attitude-quaternion mapping unique (spec.md §3).
func (q Quaternion) Canonicalize() Quaternion {
	if q.W < 0 {
		return Quaternion{W: -q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
	}
	return q
}

// Normalize renormalizes q to unit length. If q is degenerate (near-zero
// norm or NaN) it returns Identity, true — callers use the bool to raise
// the attitude alarm (spec.md §4.5 step 7).
func (q Quaternion) Normalize() (Quaternion, bool) {
	n := q.Norm()
	if n < 1e-3 || math.IsNaN(n) {
		return Identity, true
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}, false
}

// RotateVector rotates earth-frame vector v into the body frame: v' = q v q⁻¹.
func (q Quaternion) RotateVector(v Vector3) Vector3 {
	qv := Quaternion{X: v.X, Y: v.Y, Z: v.Z}
	r := q.Multiply(qv).Multiply(q.Inverse())
	return Vector3{X: r.X, Y: r.Y, Z: r.Z}
}

// FromEulerDeg builds a quaternion from a roll/pitch/yaw triple in degrees,
// applied roll-pitch-yaw order, canonicalized to W >= 0. Grounded on
// CoordinateConversions.c RPY2Quaternion.
func FromEulerDeg(rollDeg, pitchDeg, yawDeg float64) Quaternion {
	phi := rollDeg * math.Pi / 180 / 2
	theta := pitchDeg * math.Pi / 180 / 2
	psi := yawDeg * math.Pi / 180 / 2

	cphi, sphi := math.Cos(phi), math.Sin(phi)
	ctheta, stheta := math.Cos(theta), math.Sin(theta)
	cpsi, spsi := math.Cos(psi), math.Sin(psi)

	q := Quaternion{
		W: cphi*ctheta*cpsi + sphi*stheta*spsi,
		X: sphi*ctheta*cpsi - cphi*stheta*spsi,
		Y: cphi*stheta*cpsi + sphi*ctheta*spsi,
		Z: cphi*ctheta*spsi - sphi*stheta*cpsi,
	}
	return q.Canonicalize()
}

// ToEulerDeg converts q to roll/pitch/yaw in degrees, with pitch clamped to
// ±90° at the gimbal singularity (spec.md §4.1). Grounded on
// CoordinateConversions.c Quaternion2RPY.
func (q Quaternion) ToEulerDeg() (rollDeg, pitchDeg, yawDeg float64) {
	q0s, q1s, q2s, q3s := q.W*q.W, q.X*q.X, q.Y*q.Y, q.Z*q.Z

	r13 := 2 * (q.X*q.Z - q.W*q.Y)
	r11 := q0s + q1s - q2s - q3s
	r12 := 2 * (q.X*q.Y + q.W*q.Z)
	r23 := 2 * (q.Y*q.Z + q.W*q.X)
	r33 := q0s - q1s - q2s + q3s

	// clamp guards the asin against float noise pushing |r13| infinitesimally
	// past 1, which would otherwise yield NaN instead of ±90°.
	clamped := math.Max(-1, math.Min(1, -r13))
	pitchDeg = math.Asin(clamped) * 180 / math.Pi
	yawDeg = math.Atan2(r12, r11) * 180 / math.Pi
	rollDeg = math.Atan2(r23, r33) * 180 / math.Pi
	return
}

// ToRotationMatrix derives the body-to-earth rotation matrix R from q.
// Grounded on CoordinateConversions.c Quaternion2R.
func (q Quaternion) ToRotationMatrix() RotationMatrix {
	q0s, q1s, q2s, q3s := q.W*q.W, q.X*q.X, q.Y*q.Y, q.Z*q.Z
	return RotationMatrix{
		{q0s + q1s - q2s - q3s, 2 * (q.X*q.Y + q.W*q.Z), 2 * (q.X*q.Z - q.W*q.Y)},
		{2 * (q.X*q.Y - q.W*q.Z), q0s - q1s + q2s - q3s, 2 * (q.Y*q.Z + q.W*q.X)},
		{2 * (q.X*q.Z + q.W*q.Y), 2 * (q.Y*q.Z - q.W*q.X), q0s - q1s - q2s + q3s},
	}
}

// WrapDeg180 wraps an angle difference in degrees into [-180, 180), the yaw
// wrap rule used by the attitude outer loop (spec.md §4.6, §8 scenario 3).
func WrapDeg180(deg float64) float64 {
	wrapped := math.Mod(deg+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped - 180
}
