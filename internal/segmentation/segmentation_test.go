package segmentation

import (
	"testing"

	"ntcstep/pkg/structtypes"
)

func atom(chain string, labelSeq, authSeq int, altID byte, compID, atomName string, x float64) structtypes.Atom {
	return structtypes.Atom{
		AuthChain:   chain,
		LabelChain:  chain,
		LabelSeqID:  labelSeq,
		AuthSeqID:   authSeq,
		AltID:       altID,
		AuthCompID:  compID,
		LabelCompID: compID,
		AuthAtomID:  atomName,
		LabelAtomID: atomName,
		Coords:      structtypes.Vec3{X: x},
	}
}

func TestDetectResiduesBucketsContiguousRuns(t *testing.T) {
	atoms := []structtypes.Atom{
		atom("A", 1, 1, 0, "DA", "P", 0),
		atom("A", 1, 1, 0, "DA", "O3'", 1),
		atom("A", 2, 2, 0, "DG", "P", 2),
	}
	res := DetectResidues(atoms)
	if len(res) != 2 {
		t.Fatalf("expected 2 residues, got %d", len(res))
	}
	if res[0].Len() != 2 || res[1].Len() != 1 {
		t.Fatalf("unexpected residue sizes: %d, %d", res[0].Len(), res[1].Len())
	}
}

func TestSplitAltIDsNoAlt(t *testing.T) {
	atoms := []structtypes.Atom{atom("A", 1, 1, 0, "DA", "P", 0)}
	v := structtypes.NewView(atoms)
	variants := SplitAltIDs(v)
	if len(variants) != 1 || variants[0].AltID != structtypes.NoAltID {
		t.Fatalf("expected single sentinel variant, got %+v", variants)
	}
}

func TestSplitAltIDsTwoAlts(t *testing.T) {
	atoms := []structtypes.Atom{
		atom("A", 1, 1, 0, "DA", "P", 0),   // shared
		atom("A", 1, 1, 'A', "DA", "C1'", 1),
		atom("A", 1, 1, 'B', "DA", "C1'", 2),
	}
	v := structtypes.NewView(atoms)
	variants := SplitAltIDs(v)
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(variants))
	}
	for _, variant := range variants {
		if variant.View.Len() != 2 {
			t.Fatalf("expected 2 atoms per variant (shared + one alt), got %d", variant.View.Len())
		}
	}
}

func TestExtractStepsBondGate(t *testing.T) {
	atoms := []structtypes.Atom{
		atom("A", 1, 26, 0, "DA", "O3'", 0),
		atom("A", 2, 27, 0, "DC", "P", 1.9), // exactly at bound -> included
		atom("A", 2, 27, 0, "DC", "O3'", 1.9),
		atom("A", 3, 28, 0, "DG", "P", 1.9 + 1.901), // > 1.9 away -> excluded
	}
	steps := ExtractSteps(atoms)
	if len(steps) != 1 {
		t.Fatalf("expected exactly 1 step (boundary included, next excluded), got %d", len(steps))
	}
}

func TestExtractStepsSkipsNonNucleotideButContinues(t *testing.T) {
	atoms := []structtypes.Atom{
		atom("A", 1, 1, 0, "HOH", "O", 0), // water, not a nucleotide
		atom("A", 2, 2, 0, "DA", "O3'", 1),
		atom("A", 3, 3, 0, "DC", "P", 1.2),
	}
	steps := ExtractSteps(atoms)
	if len(steps) != 1 {
		t.Fatalf("expected 1 step across the water residue, got %d", len(steps))
	}
}
