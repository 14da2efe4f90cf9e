// Package stepmetrics implements spec section 4.4: the twelve geometric
// descriptors measured for one dinucleotide step.
package stepmetrics

import (
	"ntcstep/internal/errs"
	"ntcstep/internal/geom"
	"ntcstep/internal/segmentation"
	"ntcstep/pkg/structtypes"
)

// TorsionCount is the number of backbone/glycosidic torsions measured per
// step (delta1, epsilon1, zeta1, alpha2, beta2, gamma2, delta2, chi1, chi2).
const TorsionCount = 9

// Torsion index constants, fixed order per spec section 9: bit 0 is delta1.
const (
	Delta1 = iota
	Epsilon1
	Zeta1
	Alpha2
	Beta2
	Gamma2
	Delta2
	Chi1
	Chi2
)

// Metrics is the twelve measured descriptors of one dinucleotide step.
// Torsions[0:9] follow the Torsion index constants above; CC and NN are
// in angstrom, Mu is a dihedral in radians.
type Metrics struct {
	Torsions [TorsionCount]float64
	CC       float64
	NN       float64
	Mu       float64
}

// residueSel picks residue 1 or residue 2 of the step for one atom of a
// cross-residue torsion quadruple.
type residueSel int

const (
	res1 residueSel = iota
	res2
)

type atomRef struct {
	res  residueSel
	name string
}

type torsionSpec [4]atomRef

func r1a(name string) atomRef { return atomRef{res1, name} }
func r2a(name string) atomRef { return atomRef{res2, name} }

// backbone torsion quadruples, fixed per the standard nucleic-acid
// numbering (residue 1 is the 5' residue of the step).
var plainTorsions = [7]torsionSpec{
	{r1a("C5'"), r1a("C4'"), r1a("C3'"), r1a("O3'")},  // delta1
	{r1a("C4'"), r1a("C3'"), r1a("O3'"), r2a("P")},    // epsilon1
	{r1a("C3'"), r1a("O3'"), r2a("P"), r2a("O5'")},    // zeta1
	{r1a("O3'"), r2a("P"), r2a("O5'"), r2a("C5'")},    // alpha2
	{r2a("P"), r2a("O5'"), r2a("C5'"), r2a("C4'")},    // beta2
	{r2a("O5'"), r2a("C5'"), r2a("C4'"), r2a("C3'")},  // gamma2
	{r2a("C5'"), r2a("C4'"), r2a("C3'"), r2a("O3'")},  // delta2
}

func chiSpec(purine bool, res residueSel) torsionSpec {
	if purine {
		return torsionSpec{atomRef{res, "O4'"}, atomRef{res, "C1'"}, atomRef{res, "N9"}, atomRef{res, "C4"}}
	}
	return torsionSpec{atomRef{res, "O4'"}, atomRef{res, "C1'"}, atomRef{res, "N1"}, atomRef{res, "C2"}}
}

func glycosidicN(purine bool) string {
	if purine {
		return "N9"
	}
	return "N1"
}

func find(r structtypes.View, name string) (structtypes.Atom, error) {
	a, ok := r.FindByAtomName(name)
	if !ok {
		return a, errs.New(errs.MissingAtoms, "step metrics: missing atom "+name).With("atom", name)
	}
	return a, nil
}

func dihedral(r1, r2 structtypes.View, spec torsionSpec) (float64, error) {
	var pts [4]structtypes.Atom
	for i, ref := range spec {
		r := r1
		if ref.res == res2 {
			r = r2
		}
		a, err := find(r, ref.name)
		if err != nil {
			return 0, err
		}
		pts[i] = a
	}
	return geom.Dihedral(pts[0].Coords, pts[1].Coords, pts[2].Coords, pts[3].Coords)
}

func residueCompID(r structtypes.View) string {
	if r.Len() == 0 {
		return ""
	}
	return r.At(0).AuthCompID
}

// Measure computes the twelve step descriptors of a dinucleotide step.
// Any missing atom aborts with MissingAtoms and no partial result.
func Measure(r1, r2 structtypes.View) (Metrics, error) {
	var m Metrics

	for i, spec := range plainTorsions {
		v, err := dihedral(r1, r2, spec)
		if err != nil {
			return m, err
		}
		m.Torsions[i] = v
	}

	purine1 := segmentation.BaseKindOf(residueCompID(r1)).IsPurine()
	purine2 := segmentation.BaseKindOf(residueCompID(r2)).IsPurine()

	chi1, err := dihedral(r1, r2, chiSpec(purine1, res1))
	if err != nil {
		return m, err
	}
	m.Torsions[Chi1] = chi1

	chi2, err := dihedral(r1, r2, chiSpec(purine2, res2))
	if err != nil {
		return m, err
	}
	m.Torsions[Chi2] = chi2

	c1a, err := find(r1, "C1'")
	if err != nil {
		return m, err
	}
	c1b, err := find(r2, "C1'")
	if err != nil {
		return m, err
	}
	cc, err := geom.Distance(c1a.Coords, c1b.Coords)
	if err != nil {
		return m, err
	}
	m.CC = cc

	n1, err := find(r1, glycosidicN(purine1))
	if err != nil {
		return m, err
	}
	n2, err := find(r2, glycosidicN(purine2))
	if err != nil {
		return m, err
	}
	nn, err := geom.Distance(n1.Coords, n2.Coords)
	if err != nil {
		return m, err
	}
	m.NN = nn

	mu, err := geom.Dihedral(n1.Coords, c1a.Coords, c1b.Coords, n2.Coords)
	if err != nil {
		return m, err
	}
	m.Mu = mu

	return m, nil
}
