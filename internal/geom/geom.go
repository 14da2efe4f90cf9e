// Package geom implements the geometry primitives of spec section 4.1:
// distance, angle, dihedral, centroid, rmsd, superpose, and the angular
// helpers every distance calculation in the engine is built on.
//
// Mixing radians and degrees is the single largest correctness hazard
// this package exists to centralise; callers outside geom should never
// reimplement angle wrapping or differencing.
package geom

import (
	"math"

	"ntcstep/internal/errs"
	"ntcstep/pkg/structtypes"
)

// Distance returns the Euclidean distance between p and q.
func Distance(p, q structtypes.Vec3) (float64, error) {
	if !finite3(p) || !finite3(q) {
		return 0, errs.New(errs.BadGeometry, "non-finite coordinate in distance")
	}
	d := p.Sub(q)
	return math.Sqrt(d.Dot(d)), nil
}

// Angle returns the interior angle (radians, [0, pi]) at vertex b formed
// by points a, b, c.
func Angle(a, b, c structtypes.Vec3) (float64, error) {
	if !finite3(a) || !finite3(b) || !finite3(c) {
		return 0, errs.New(errs.BadGeometry, "non-finite coordinate in angle")
	}
	u := a.Sub(b)
	v := c.Sub(b)
	lu := math.Sqrt(u.Dot(u))
	lv := math.Sqrt(v.Dot(v))
	if lu == 0 || lv == 0 {
		return 0, errs.New(errs.BadGeometry, "degenerate angle: coincident points")
	}
	cosTheta := u.Dot(v) / (lu * lv)
	cosTheta = clamp(cosTheta, -1, 1)
	return math.Acos(cosTheta), nil
}

// Dihedral returns the signed dihedral angle about the b-c axis formed by
// a, b, c, d, in (-pi, pi], using the right-handed convention.
func Dihedral(a, b, c, d structtypes.Vec3) (float64, error) {
	if !finite3(a) || !finite3(b) || !finite3(c) || !finite3(d) {
		return 0, errs.New(errs.BadGeometry, "non-finite coordinate in dihedral")
	}
	b1 := b.Sub(a)
	b2 := c.Sub(b)
	b3 := d.Sub(c)

	n1 := b1.Cross(b2)
	n2 := b2.Cross(b3)

	ln1 := math.Sqrt(n1.Dot(n1))
	ln2 := math.Sqrt(n2.Dot(n2))
	lb2 := math.Sqrt(b2.Dot(b2))
	if ln1 == 0 || ln2 == 0 || lb2 == 0 {
		return 0, errs.New(errs.BadGeometry, "degenerate dihedral: collinear points")
	}

	m1 := n1.Cross(b2.Scale(1 / lb2))
	x := n1.Dot(n2) / (ln1 * ln2)
	y := m1.Dot(n2) / (ln1 * ln2)

	theta := math.Atan2(y, x)
	return WrapToPi(theta), nil
}

// Centroid returns the arithmetic mean of points. Panics-free: an empty
// slice returns the zero vector.
func Centroid(points []structtypes.Vec3) structtypes.Vec3 {
	if len(points) == 0 {
		return structtypes.Vec3{}
	}
	var sum structtypes.Vec3
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(points)))
}

func finite3(v structtypes.Vec3) bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

const twoPi = 2 * math.Pi

// WrapTo2Pi maps x into [0, 2*pi).
func WrapTo2Pi(x float64) float64 {
	y := math.Mod(x, twoPi)
	if y < 0 {
		y += twoPi
	}
	return y
}

// WrapToPi maps x into (-pi, pi].
func WrapToPi(x float64) float64 {
	y := WrapTo2Pi(x+math.Pi) - math.Pi
	if y == -math.Pi {
		return math.Pi
	}
	return y
}

// AngleDifference returns the signed shortest arc from b to a, in
// (-pi, pi]. It is numerically identical to wrapping (a - b), and every
// distance computation in the engine must route through this function
// rather than subtracting angles directly.
func AngleDifference(a, b float64) float64 {
	return WrapToPi(a - b)
}
