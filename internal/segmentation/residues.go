package segmentation

import "ntcstep/pkg/structtypes"

// DetectResidues walks atoms in order and buckets contiguous runs sharing
// (model, chain, label_seq_id) into residue views. Order within each
// residue is preserved from the source sequence.
func DetectResidues(atoms []structtypes.Atom) []structtypes.View {
	var residues []structtypes.View
	i := 0
	for i < len(atoms) {
		j := i + 1
		for j < len(atoms) && atoms[i].SameResidue(atoms[j]) {
			j++
		}
		residues = append(residues, structtypes.NewView(atoms[i:j]))
		i = j
	}
	return residues
}

// ChainOf returns the (auth) chain identifier of a non-empty residue view.
func ChainOf(r structtypes.View) string {
	if r.Len() == 0 {
		return ""
	}
	return r.At(0).AuthChain
}

// ModelOf returns the model number of a non-empty residue view.
func ModelOf(r structtypes.View) int {
	if r.Len() == 0 {
		return 0
	}
	return r.At(0).Model
}
