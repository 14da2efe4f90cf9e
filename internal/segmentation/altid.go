package segmentation

import "ntcstep/pkg/structtypes"

// AltVariant is one alt-id-split variant of a residue: the atoms visible
// under that alt-id selection, and the alt-id itself (structtypes.NoAltID
// when the residue had no alternate locations at all).
type AltVariant struct {
	View  structtypes.View
	AltID byte
}

// SplitAltIDs enumerates the distinct non-sentinel alt-ids present in r.
// If there are none, it returns a single variant containing every atom of
// r under the sentinel alt-id. Otherwise it returns, for each distinct
// alt-id, a variant containing every atom whose alt-id is either that id
// or the sentinel, in original order — a superset of the "shared" atoms
// plus exactly one alt-variant of the rest.
func SplitAltIDs(r structtypes.View) []AltVariant {
	var altIDs []byte
	seen := map[byte]bool{}
	for i := 0; i < r.Len(); i++ {
		id := r.At(i).AltID
		if id == structtypes.NoAltID || seen[id] {
			continue
		}
		seen[id] = true
		altIDs = append(altIDs, id)
	}

	if len(altIDs) == 0 {
		return []AltVariant{{View: r, AltID: structtypes.NoAltID}}
	}

	variants := make([]AltVariant, 0, len(altIDs))
	for _, id := range altIDs {
		var atoms []structtypes.Atom
		for i := 0; i < r.Len(); i++ {
			a := r.At(i)
			if a.AltID == structtypes.NoAltID || a.AltID == id {
				atoms = append(atoms, a)
			}
		}
		variants = append(variants, AltVariant{View: structtypes.NewView(atoms), AltID: id})
	}
	return variants
}
