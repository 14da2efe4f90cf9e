// Package ribose implements spec section 4.3: ribose ring atom
// extraction, the five nu torsions, pseudorotation phase/amplitude and
// sugar-pucker classification.
package ribose

import (
	"math"

	"ntcstep/internal/errs"
	"ntcstep/internal/geom"
	"ntcstep/pkg/names"
	"ntcstep/pkg/structtypes"
)

// ringAtomNames is the fixed order ribose ring atoms are gathered in:
// C4', O4', C1', C2', C3'.
var ringAtomNames = [5]string{"C4'", "O4'", "C1'", "C2'", "C3'"}

// ExtractRing locates the five ribose ring atoms of a residue, in the
// fixed order C4',O4',C1',C2',C3'. Returns MissingAtoms if any is absent.
func ExtractRing(residue structtypes.View) ([5]structtypes.Atom, error) {
	var ring [5]structtypes.Atom
	for i, name := range ringAtomNames {
		a, ok := residue.FindByAtomName(name)
		if !ok {
			return ring, errs.New(errs.MissingAtoms, "ribose ring atom "+name+" not found").
				With("atom", name)
		}
		ring[i] = a
	}
	return ring, nil
}

// NuBundle holds the five nu torsions (nu0..nu4) of one ribose, radians
// in (-pi, pi].
type NuBundle struct {
	Nu [5]float64
}

// NuTorsions computes the five ring torsions from the ordered ring atoms:
// nu_i is the dihedral of the cyclic quadruple (i, i+1, i+2, i+3) mod 5.
func NuTorsions(ring [5]structtypes.Atom) (NuBundle, error) {
	var b NuBundle
	for i := 0; i < 5; i++ {
		a0 := ring[i].Coords
		a1 := ring[(i+1)%5].Coords
		a2 := ring[(i+2)%5].Coords
		a3 := ring[(i+3)%5].Coords
		theta, err := geom.Dihedral(a0, a1, a2, a3)
		if err != nil {
			return b, err
		}
		b.Nu[i] = theta
	}
	return b, nil
}

const minNu2Magnitude = 5e-5

// Pseudorotation computes the pseudorotation phase P (radians, [0, 2*pi))
// and the amplitude tau_max from a nu bundle.
func Pseudorotation(b NuBundle) (p, tauMax float64) {
	nu0, nu1, nu2, nu3, nu4 := b.Nu[0], b.Nu[1], b.Nu[2], b.Nu[3], b.Nu[4]

	if math.Abs(nu2) < minNu2Magnitude {
		nu2 = math.Copysign(minNu2Magnitude, nu2)
	}

	sin36 := math.Sin(36 * math.Pi / 180)
	sin72 := math.Sin(72 * math.Pi / 180)

	tanP := (nu4 + nu1 - nu3 - nu0) / (2 * nu2 * (sin36 + sin72))

	p = math.Atan(tanP)
	switch {
	case nu2 < 0:
		p += math.Pi
	case tanP < 0:
		p += 2 * math.Pi
	}
	p = geom.WrapTo2Pi(p)

	tauMax = math.Abs(nu2 / math.Cos(p))
	return p, tauMax
}

// Pucker discretises the pseudorotation phase P into one of the ten
// 36-degree-wide bins and returns the corresponding sugar pucker.
func Pucker(p float64) names.SugarPucker {
	deg := geom.WrapTo2Pi(p) * 180 / math.Pi
	bin := int(deg / 36)
	if bin < 0 {
		bin = 0
	}
	if bin > 9 {
		bin = 9
	}
	return names.PuckerBins[bin]
}
