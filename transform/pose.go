package transform

import (
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Pose is a rigid transform in world space: a translation plus a unit
// quaternion rotation. The zero value is the identity pose at the origin
// once Rotation is normalized; use IdentityPose for an explicit identity.
type Pose struct {
	Translation r3.Vec
	Rotation    quat.Number
}

// IdentityPose returns the origin pose with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: quat.Number{Real: 1}}
}

// Distance returns the Euclidean distance between the translations of two
// poses.
func (p Pose) Distance(q Pose) float64 {
	return r3.Norm(r3.Sub(p.Translation, q.Translation))
}

// TransformPoint applies the pose to a point: rotate, then translate.
func (p Pose) TransformPoint(v r3.Vec) r3.Vec {
	return r3.Add(p.rotate(v), p.Translation)
}

func (p Pose) rotate(v r3.Vec) r3.Vec {
	q := p.Rotation
	vv := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, vv), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Matrix returns the pose as a column-major 4x4 model matrix, the layout GL
// shader uniforms expect.
func (p Pose) Matrix() [16]float32 {
	q := p.Rotation
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	var m [16]float32
	m[0] = float32(1 - 2*(y*y+z*z))
	m[1] = float32(2 * (x*y + w*z))
	m[2] = float32(2 * (x*z - w*y))

	m[4] = float32(2 * (x*y - w*z))
	m[5] = float32(1 - 2*(x*x+z*z))
	m[6] = float32(2 * (y*z + w*x))

	m[8] = float32(2 * (x*z + w*y))
	m[9] = float32(2 * (y*z - w*x))
	m[10] = float32(1 - 2*(x*x+y*y))

	m[12] = float32(p.Translation.X)
	m[13] = float32(p.Translation.Y)
	m[14] = float32(p.Translation.Z)
	m[15] = 1
	return m
}
