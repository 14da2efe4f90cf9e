package engine

import (
	"ntcstep/internal/errs"
	"ntcstep/internal/geom"
	"ntcstep/internal/tables"
	"ntcstep/pkg/structtypes"
)

// ExtractExtendedBackbone pulls the fixed eighteen-atom sugar-phosphate
// pattern (nine atoms per residue: P, O5', C5', C4', O4', C3', O3', C2',
// C1') out of a dinucleotide step, in the order reference clouds are
// stored in. This is the point set superposed against a cluster's
// reference geometry to compute RMSD-to-closest-NtC (spec section 4.9,
// grounded on the original source's extended-backbone atom selection).
func ExtractExtendedBackbone(step structtypes.DinucleotideStep) ([]structtypes.Vec3, error) {
	out := make([]structtypes.Vec3, 0, 18)
	for _, name := range tables.ExtBackboneAtomNames1 {
		a, ok := step.FirstResidue.FindByAtomName(name)
		if !ok {
			return nil, errs.New(errs.MissingAtoms, "extended backbone atom missing in first residue").With("atom", name)
		}
		out = append(out, a.Coords)
	}
	for _, name := range tables.ExtBackboneAtomNames2 {
		a, ok := step.SecondResidue.FindByAtomName(name)
		if !ok {
			return nil, errs.New(errs.MissingAtoms, "extended backbone atom missing in second residue").With("atom", name)
		}
		out = append(out, a.Coords)
	}
	return out, nil
}

// rmsdToCluster superposes measured onto clusterIdx's own reference
// extended-backbone cloud and returns the fit RMSD. Ground truth only ever
// computes this RMSD against the cluster a step has already been assigned
// to by voting and fallback, never against every cluster's reference
// geometry. Returns WrongMetrics if clusterIdx carries no reference
// geometry.
func rmsdToCluster(ctx *Context, measured []structtypes.Vec3, clusterIdx int) (float64, error) {
	ref := ctx.extRefClouds[clusterIdx]
	if len(ref) == 0 {
		return 0, errs.New(errs.WrongMetrics, "no extended-backbone reference geometry available").With("cluster", clusterIdx)
	}
	movable := make([]structtypes.Vec3, len(measured))
	copy(movable, measured)
	return geom.Superpose(movable, ref)
}
