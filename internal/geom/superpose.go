package geom

import (
	"math"

	"ntcstep/internal/errs"
	"ntcstep/pkg/structtypes"
)

// RMSD returns the root-mean-square distance between corresponding points
// of a and b. len(a) must equal len(b).
func RMSD(a, b []structtypes.Vec3) (float64, error) {
	if len(a) != len(b) {
		return 0, errs.New(errs.MismatchingSizes, "rmsd: point sets differ in length")
	}
	if len(a) == 0 {
		return 0, nil
	}
	var sumSq float64
	for i := range a {
		d := a[i].Sub(b[i])
		sumSq += d.Dot(d)
	}
	return math.Sqrt(sumSq / float64(len(a))), nil
}

// Superpose performs a Kabsch/Horn rigid alignment of movable onto
// reference, minimising RMSD. It mutates movable's coordinates in place
// (translation + rotation only, no scaling) and returns the achieved
// RMSD. len(movable) must equal len(reference).
//
// The optimal rotation is found via Horn's (1987) unit-quaternion method:
// build the 4x4 symmetric "key matrix" from the cross-covariance of the
// centered point sets and take the eigenvector of its largest eigenvalue
// as the rotation quaternion.
func Superpose(movable, reference []structtypes.Vec3) (float64, error) {
	if len(movable) != len(reference) {
		return 0, errs.New(errs.MismatchingSizes, "superpose: point sets differ in length")
	}
	n := len(movable)
	if n == 0 {
		return 0, nil
	}

	cm := Centroid(movable)
	cr := Centroid(reference)

	var sxx, sxy, sxz, syx, syy, syz, szx, szy, szz float64
	for i := 0; i < n; i++ {
		a := movable[i].Sub(cm)
		b := reference[i].Sub(cr)
		sxx += a.X * b.X
		sxy += a.X * b.Y
		sxz += a.X * b.Z
		syx += a.Y * b.X
		syy += a.Y * b.Y
		syz += a.Y * b.Z
		szx += a.Z * b.X
		szy += a.Z * b.Y
		szz += a.Z * b.Z
	}

	k := [4][4]float64{
		{sxx + syy + szz, syz - szy, szx - sxz, sxy - syx},
		{syz - szy, sxx - syy - szz, sxy + syx, szx + sxz},
		{szx - sxz, sxy + syx, -sxx + syy - szz, syz + szy},
		{sxy - syx, szx + sxz, syz + szy, -sxx - syy + szz},
	}

	_, vec := largestEigenpair(k)
	q := quaternion{W: vec[0], X: vec[1], Y: vec[2], Z: vec[3]}.normalize()
	rot := q.toRotationMatrix()

	transformed := make([]structtypes.Vec3, n)
	for i := 0; i < n; i++ {
		a := movable[i].Sub(cm)
		r := structtypes.Vec3{
			X: rot[0][0]*a.X + rot[0][1]*a.Y + rot[0][2]*a.Z,
			Y: rot[1][0]*a.X + rot[1][1]*a.Y + rot[1][2]*a.Z,
			Z: rot[2][0]*a.X + rot[2][1]*a.Y + rot[2][2]*a.Z,
		}
		transformed[i] = r.Add(cr)
	}
	copy(movable, transformed)

	return RMSD(movable, reference)
}

// largestEigenpair finds the largest (most positive) eigenvalue and its unit
// eigenvector of a symmetric 4x4 matrix via the cyclic Jacobi method.
func largestEigenpair(m [4][4]float64) (float64, [4]float64) {
	a := m
	v := [4][4]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}

	for sweep := 0; sweep < 100; sweep++ {
		off := 0.0
		for p := 0; p < 4; p++ {
			for q := p + 1; q < 4; q++ {
				off += a[p][q] * a[p][q]
			}
		}
		if off < 1e-24 {
			break
		}
		for p := 0; p < 4; p++ {
			for q := p + 1; q < 4; q++ {
				if math.Abs(a[p][q]) < 1e-300 {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				app := a[p][p]
				aqq := a[q][q]
				apq := a[p][q]

				a[p][p] = c*c*app - 2*s*c*apq + s*s*aqq
				a[q][q] = s*s*app + 2*s*c*apq + c*c*aqq
				a[p][q] = 0
				a[q][p] = 0

				for r := 0; r < 4; r++ {
					if r == p || r == q {
						continue
					}
					arp := a[r][p]
					arq := a[r][q]
					a[r][p] = c*arp - s*arq
					a[p][r] = a[r][p]
					a[r][q] = s*arp + c*arq
					a[q][r] = a[r][q]
				}
				for r := 0; r < 4; r++ {
					vrp := v[r][p]
					vrq := v[r][q]
					v[r][p] = c*vrp - s*vrq
					v[r][q] = s*vrp + c*vrq
				}
			}
		}
	}

	best := 0
	for i := 1; i < 4; i++ {
		if a[i][i] > a[best][best] {
			best = i
		}
	}
	var vec [4]float64
	for r := 0; r < 4; r++ {
		vec[r] = v[r][best]
	}
	return a[best][best], vec
}
