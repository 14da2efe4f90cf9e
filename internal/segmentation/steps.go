package segmentation

import (
	"ntcstep/internal/geom"
	"ntcstep/pkg/structtypes"
)

// O3PBondDistance is the maximum O3'-P distance (angstrom) for two
// residues to be considered phosphodiester-linked into a step. The bound
// is inclusive: exactly 1.9 is a step, 1.9+eps is not.
const O3PBondDistance = 1.9

// ExtractSteps walks atoms residue by residue and emits every
// dinucleotide step: consecutive residue pairs in the same chain and
// model, alt-id split, whose O3'(first)-P(second) distance is within
// O3PBondDistance. Residues with an unrecognised component name, or
// missing O3'/P, are skipped silently without breaking the walk — the
// next residue pair is still attempted.
func ExtractSteps(atoms []structtypes.Atom) []structtypes.DinucleotideStep {
	residues := DetectResidues(atoms)

	var steps []structtypes.DinucleotideStep
	for i := 0; i+1 < len(residues); i++ {
		r1 := residues[i]
		r2 := residues[i+1]

		if ModelOf(r1) != ModelOf(r2) || ChainOf(r1) != ChainOf(r2) {
			continue
		}
		if !IsNucleotide(r1.At(0).AuthCompID) || !IsNucleotide(r2.At(0).AuthCompID) {
			continue
		}

		for _, v1 := range SplitAltIDs(r1) {
			o3, ok := v1.View.FindByAtomName("O3'")
			if !ok {
				continue
			}
			for _, v2 := range SplitAltIDs(r2) {
				p, ok := v2.View.FindByAtomName("P")
				if !ok {
					continue
				}
				d, err := geom.Distance(o3.Coords, p.Coords)
				if err != nil || d > O3PBondDistance {
					continue
				}
				steps = append(steps, buildStep(v1.View, v2.View))
			}
		}
	}
	return steps
}

func buildStep(r1, r2 structtypes.View) structtypes.DinucleotideStep {
	atoms := make([]structtypes.Atom, 0, r1.Len()+r2.Len())
	atoms = append(atoms, r1.Atoms()...)
	atoms = append(atoms, r2.Atoms()...)
	return structtypes.DinucleotideStep{
		Atoms:         atoms,
		FirstResidue:  structtypes.NewView(atoms[:r1.Len()]),
		SecondResidue: structtypes.NewView(atoms[r1.Len():]),
	}
}

// HasMultipleAltIDs reports whether the step's underlying atoms carry more
// than one distinct non-sentinel alt-id within either residue, which makes
// the step ambiguous for classification (spec: MultipleAltIds).
func HasMultipleAltIDs(step structtypes.DinucleotideStep) bool {
	return hasMultipleAltIDs(step.FirstResidue) || hasMultipleAltIDs(step.SecondResidue)
}

func hasMultipleAltIDs(r structtypes.View) bool {
	seen := map[byte]bool{}
	for i := 0; i < r.Len(); i++ {
		id := r.At(i).AltID
		if id == structtypes.NoAltID {
			continue
		}
		seen[id] = true
		if len(seen) > 1 {
			return true
		}
	}
	return false
}
