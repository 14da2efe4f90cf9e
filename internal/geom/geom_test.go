package geom

import (
	"math"
	"testing"

	"ntcstep/pkg/structtypes"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestAngleDifferenceSelfIsZero(t *testing.T) {
	for _, a := range []float64{0, 1, math.Pi, -math.Pi / 2, 3.14159} {
		d := AngleDifference(a, a)
		if !almostEqual(d, 0, 1e-12) {
			t.Fatalf("angle_difference(%v,%v) = %v, want ~0", a, a, d)
		}
	}
}

func TestAngleDifferenceAntisymmetric(t *testing.T) {
	a, b := 1.2, -2.7
	d1 := AngleDifference(a, b)
	d2 := AngleDifference(b, a)
	if !almostEqual(d1, -d2, 1e-9) {
		t.Fatalf("angle_difference not antisymmetric: %v vs %v", d1, d2)
	}
}

func TestWrapTo2PiIdempotent(t *testing.T) {
	for _, x := range []float64{0, 7, -7, 100.5, -0.001} {
		w1 := WrapTo2Pi(x)
		w2 := WrapTo2Pi(w1)
		if !almostEqual(w1, w2, 1e-9) {
			t.Fatalf("wrap_to_2pi not idempotent for %v: %v vs %v", x, w1, w2)
		}
		if w1 < 0 || w1 >= 2*math.Pi {
			t.Fatalf("wrap_to_2pi(%v) = %v out of range", x, w1)
		}
	}
}

func TestDihedralRange(t *testing.T) {
	a := structtypes.Vec3{X: 0, Y: 0, Z: 0}
	b := structtypes.Vec3{X: 1, Y: 0, Z: 0}
	c := structtypes.Vec3{X: 1, Y: 1, Z: 0}
	d := structtypes.Vec3{X: 2, Y: 1, Z: 1}
	theta, err := Dihedral(a, b, c, d)
	if err != nil {
		t.Fatal(err)
	}
	if theta <= -math.Pi || theta > math.Pi {
		t.Fatalf("dihedral out of (-pi, pi]: %v", theta)
	}
}

func TestSuperposeIdenticalSetsIsZeroRMSD(t *testing.T) {
	pts := []structtypes.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
	}
	ref := make([]structtypes.Vec3, len(pts))
	copy(ref, pts)

	movable := make([]structtypes.Vec3, len(pts))
	copy(movable, pts)
	// Translate + rotate 90deg about Z.
	for i, p := range movable {
		movable[i] = structtypes.Vec3{X: -p.Y + 5, Y: p.X + 5, Z: p.Z + 5}
	}

	rmsd, err := Superpose(movable, ref)
	if err != nil {
		t.Fatal(err)
	}
	if rmsd > 1e-6 {
		t.Fatalf("expected near-zero rmsd after superposition, got %v", rmsd)
	}
}

func TestDistanceThreeFourFiveTriangle(t *testing.T) {
	p := structtypes.Vec3{X: 0, Y: 0, Z: 0}
	q := structtypes.Vec3{X: 3, Y: 4, Z: 0}
	d, err := Distance(p, q)
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(d, 5, 1e-9) {
		t.Fatalf("distance = %v, want 5", d)
	}
}
