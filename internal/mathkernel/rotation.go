package mathkernel

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned by the two-vector rotation builder when either
// input pair is colinear or (numerically) zero, per spec.md §4.1.
var ErrDegenerate = errors.New("mathkernel: degenerate input vector")

// RotationMatrix is a 3x3 body-to-earth rotation matrix.
type RotationMatrix [3][3]float64

// Apply rotates vector v by R.
func (r RotationMatrix) Apply(v Vector3) Vector3 {
	return Vector3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// ToQuaternion recovers a quaternion from a proper rotation matrix.
func (r RotationMatrix) ToQuaternion() Quaternion {
	tr := r[0][0] + r[1][1] + r[2][2]
	var q Quaternion
	switch {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = Quaternion{
			W: s / 4,
			X: (r[2][1] - r[1][2]) / s,
			Y: (r[0][2] - r[2][0]) / s,
			Z: (r[1][0] - r[0][1]) / s,
		}
	case r[0][0] > r[1][1] && r[0][0] > r[2][2]:
		s := math.Sqrt(1+r[0][0]-r[1][1]-r[2][2]) * 2
		q = Quaternion{
			W: (r[2][1] - r[1][2]) / s,
			X: s / 4,
			Y: (r[0][1] + r[1][0]) / s,
			Z: (r[0][2] + r[2][0]) / s,
		}
	case r[1][1] > r[2][2]:
		s := math.Sqrt(1+r[1][1]-r[0][0]-r[2][2]) * 2
		q = Quaternion{
			W: (r[0][2] - r[2][0]) / s,
			X: (r[0][1] + r[1][0]) / s,
			Y: s / 4,
			Z: (r[1][2] + r[2][1]) / s,
		}
	default:
		s := math.Sqrt(1+r[2][2]-r[0][0]-r[1][1]) * 2
		q = Quaternion{
			W: (r[1][0] - r[0][1]) / s,
			X: (r[0][2] + r[2][0]) / s,
			Y: (r[1][2] + r[2][1]) / s,
			Z: s / 4,
		}
	}
	return q.Canonicalize()
}

// IsOrthonormal reports whether R·Rᵀ = I within tolerance, the invariant
// spec.md §3 and §8 require of every rotation matrix in play. Built on
// gonum/mat so the check is expressed as real matrix algebra rather than
// nine hand-unrolled multiplications, the way a Go codebase that already
// depends on gonum (PossumXI-Asgard_Arobi/Valkyrie) would write it.
func (r RotationMatrix) IsOrthonormal(tol float64) bool {
	data := make([]float64, 9)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			data[i*3+j] = r[i][j]
		}
	}
	m := mat.NewDense(3, 3, data)
	var rt, product mat.Dense
	rt.CloneFrom(m.T())
	product.Mul(m, &rt)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(product.At(i, j)-want) > tol {
				return false
			}
		}
	}
	return true
}

// RotationBetweenVectorPairs builds the rotation matrix that best aligns a
// pair of body-frame vectors (v1b, v2b) with their earth-frame counterparts
// (v1e, v2e), using Gram-Schmidt to build an orthonormal frame out of each
// pair and then composing them. Fails with ErrDegenerate when either
// leading vector is shorter than 1e-30 or the cross product used to build
// the second axis is colinear / zero.
//
// Grounded on CoordinateConversions.c RotFrom2Vectors.
func RotationBetweenVectorPairs(v1b, v1e, v2b, v2e Vector3) (RotationMatrix, error) {
	rib, err := orthonormalFrame(v1b, v2b)
	if err != nil {
		return RotationMatrix{}, err
	}
	rie, err := orthonormalFrame(v1e, v2e)
	if err != nil {
		return RotationMatrix{}, err
	}

	// Rbe = Rib^T * Rie
	var out RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.0
			for k := 0; k < 3; k++ {
				sum += rib[k][i] * rie[k][j]
			}
			out[i][j] = sum
		}
	}
	return out, nil
}

// orthonormalFrame builds the three rows {v1/|v1|, (v1 x v2)/|v1 x v2|, row0 x row1}
// failing if v1 or the cross product is too short to normalize.
func orthonormalFrame(v1, v2 Vector3) (RotationMatrix, error) {
	mag1 := v1.Norm()
	if math.Abs(mag1) < minAllowableMagnitude {
		return RotationMatrix{}, ErrDegenerate
	}
	row0 := v1.Scale(1 / mag1)

	cross := v1.Cross(v2)
	magc := cross.Norm()
	if math.Abs(magc) < minAllowableMagnitude {
		return RotationMatrix{}, ErrDegenerate
	}
	row1 := cross.Scale(1 / magc)

	row2 := row0.Cross(row1)

	return RotationMatrix{
		{row0.X, row0.Y, row0.Z},
		{row1.X, row1.Y, row1.Z},
		{row2.X, row2.Y, row2.Z},
	}, nil
}

// smallAngleThreshold is sqrt(2*machine_epsilon(float32)), the point below
// which CoordinateConversions.c's Rv2Rot flushes cos/sinc to avoid a
// division by (near) zero.
const smallAngleThreshold = 0.00048828125

// RotationFromAxisAngle builds a rotation matrix from a rotation vector
// (axis * angle, radians). Below smallAngleThreshold it uses the flushed
// small-angle quaternion q = (1, v/2) rather than dividing by the vector's
// magnitude, per spec.md §4.1.
func RotationFromAxisAngle(v Vector3) RotationMatrix {
	angle := v.Norm()
	var q Quaternion
	if angle <= smallAngleThreshold {
		q = Quaternion{W: 1, X: 0.5 * v.X, Y: 0.5 * v.Y, Z: 0.5 * v.Z}
	} else {
		scale := math.Sin(angle*0.5) / angle
		q = Quaternion{W: math.Cos(angle * 0.5), X: scale * v.X, Y: scale * v.Y, Z: scale * v.Z}
	}
	return q.ToRotationMatrix()
}
