package geom

import "math"

// quaternion represents a rotation in 3D space, w + xi + yj + zk. Adapted
// from the teacher's engines.Quaternion: same representation and the same
// ToRotationMatrix conversion, narrowed to just what superpose needs.
type quaternion struct {
	W, X, Y, Z float64
}

func (q quaternion) normalize() quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return quaternion{W: 1}
	}
	return quaternion{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// toRotationMatrix converts a unit quaternion to a 3x3 rotation matrix.
func (q quaternion) toRotationMatrix() [3][3]float64 {
	q = q.normalize()

	xx := q.X * q.X
	xy := q.X * q.Y
	xz := q.X * q.Z
	xw := q.X * q.W

	yy := q.Y * q.Y
	yz := q.Y * q.Z
	yw := q.Y * q.W

	zz := q.Z * q.Z
	zw := q.Z * q.W

	return [3][3]float64{
		{1 - 2*(yy+zz), 2 * (xy - zw), 2 * (xz + yw)},
		{2 * (xy + zw), 1 - 2*(xx+zz), 2 * (yz - xw)},
		{2 * (xz - yw), 2 * (yz + xw), 1 - 2*(xx+yy)},
	}
}
