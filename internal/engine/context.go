package engine

import (
	"math"
	"sort"

	"ntcstep/internal/errs"
	"ntcstep/internal/geom"
	"ntcstep/internal/ribose"
	"ntcstep/internal/stepmetrics"
	"ntcstep/internal/tables"
	"ntcstep/pkg/names"
	"ntcstep/pkg/structtypes"
)

// Widening multipliers applied to a cluster's table-supplied deviation
// before deriving min/max bounds (spec section 4.5). The original source
// treats these as fixed constants internal to the reference-table build;
// not being part of any external interface, their exact values are a
// documented decision here (DESIGN.md), not a parsed input.
const (
	backboneTorsionMultiplier = 1.5
	distanceMultiplier        = 2.0
	muTorsionMultiplier       = 1.5
)

// xrDistanceMultiplierDeg converts an angstrom cross-residue distance
// (CC, NN) into a "radian-equivalent" degree quantity so it is
// commensurable with torsion differences in the 12-D nearest-neighbour
// distance and in the voting formula (spec section 9, "degrees-in-voting
// quirk").
const xrDistanceMultiplierDeg = 30.0

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

const dMul = xrDistanceMultiplierDeg // used directly in degree-space voting; radian form below
var dMulRad = degToRad(xrDistanceMultiplierDeg)

// selfIdentitySqTolerance is the squared torsion-distance threshold below
// which a golden step is treated as identical to the step being
// classified and skipped (spec section 4.6 step 2; Open Question in
// spec.md section 9, decided in SPEC_FULL.md section 7.2).
const selfIdentitySqTolerance = (0.0005 * 9) * (0.0005 * 9)

// Context is the classification engine's opaque, read-only reference
// library: clusters, golden steps and confals, arena-stored as flat
// slices with a cluster-number -> index map (spec section 9 "arena +
// stable integer indices" design note, adapted from the teacher's
// internal/memory.Arena bump allocator to a typed slice arena since every
// record here is a fixed Cluster/GoldenStep/confalStats value, never a
// variable-length byte blob).
type Context struct {
	clusters      []Cluster
	clusterIndex  map[int]int // cluster number -> index into clusters/confalsByIdx/nuAnglesByIdx
	goldenSteps   []GoldenStep
	confalsByIdx  []confalStats
	nuAnglesByIdx []nuAngleStats
	percentiles   [101]float64
	closeEnough   float64
	limits        Limits
	extRefClouds  [][]structtypes.Vec3 // indexed like clusters; nil entry = no reference geometry
}

type nuAngleStats struct {
	mean1, dev1 [5]float64
	mean2, dev2 [5]float64
}

// NewContext validates the given reference tables and limits and builds a
// read-only Context. See spec section 4.5 for the exact validation order.
func NewContext(
	clusterRows []tables.ClusterRow,
	goldenRows []tables.GoldenStepRow,
	confalRows []tables.ConfalRow,
	nuAngleRows []tables.NuAngleRow,
	extBackboneRows []tables.ExtBackboneRow,
	percentiles []float64,
	limits Limits,
	closeEnoughRMSD float64,
) (*Context, error) {
	if len(clusterRows) == 0 || len(goldenRows) == 0 || len(confalRows) == 0 || len(nuAngleRows) == 0 {
		return nil, errs.New(errs.InvalidArgument, "classification context: empty reference table")
	}
	if closeEnoughRMSD <= 0 {
		return nil, errs.New(errs.InvalidArgument, "classification context: close_enough_rmsd must be > 0")
	}
	if len(clusterRows) != len(confalRows) || len(clusterRows) != len(nuAngleRows) {
		return nil, errs.New(errs.MismatchingSizes, "classification context: clusters/confals/nu-angles length mismatch")
	}
	if len(percentiles) != 101 {
		return nil, errs.New(errs.BadData, "classification context: confal percentile table must have exactly 101 rows")
	}

	clusterIndex := make(map[int]int, len(clusterRows))
	clusters := make([]Cluster, len(clusterRows))
	for i, row := range clusterRows {
		if _, dup := clusterIndex[row.Number]; dup {
			return nil, errs.New(errs.BadClassificationClusters, "duplicate cluster number").With("cluster_number", row.Number)
		}
		clusterIndex[row.Number] = i

		for m := 0; m < 12; m++ {
			if row.MetricMean[m] < 0 || row.MetricDeviation[m] < 0 {
				return nil, errs.New(errs.BadClassificationClusters, "negative cluster metric mean/deviation").
					With("cluster_number", row.Number)
			}
		}

		clusters[i] = Cluster{
			Number:     row.Number,
			NtC:        names.NtCFromName(row.NtCName),
			CANA:       names.CANAFromName(row.CANAName),
			PseudoRef1: row.PseudoRef1,
			PseudoRef2: row.PseudoRef2,
		}
		for m := 0; m < 12; m++ {
			clusters[i].Metrics[m] = deriveMetric(m, row.MetricMean[m], row.MetricDeviation[m])
		}
	}

	confalsByIdx := make([]confalStats, len(clusters))
	for _, row := range confalRows {
		idx, ok := clusterIndex[row.ClusterNumber]
		if !ok {
			return nil, errs.New(errs.BadConfals, "confal row references unknown cluster number").
				With("cluster_number", row.ClusterNumber)
		}
		confalsByIdx[idx] = confalStats{sigma: row.Sigma, nuSigma1: row.NuSigma1, nuSigma2: row.NuSigma2}
	}

	nuAnglesByIdx := make([]nuAngleStats, len(clusters))
	for _, row := range nuAngleRows {
		idx, ok := clusterIndex[row.ClusterNumber]
		if !ok {
			return nil, errs.New(errs.BadAverageNuAngles, "nu-angle row references unknown cluster number").
				With("cluster_number", row.ClusterNumber)
		}
		nuAnglesByIdx[idx] = nuAngleStats{mean1: row.Mean1, dev1: row.Deviation1, mean2: row.Mean2, dev2: row.Deviation2}
	}
	for i := range clusters {
		na := nuAnglesByIdx[i]
		for n := 0; n < 5; n++ {
			clusters[i].Nu1[n] = deriveNuMetric(na.mean1[n], na.dev1[n])
			clusters[i].Nu2[n] = deriveNuMetric(na.mean2[n], na.dev2[n])
		}
	}

	goldenSteps := make([]GoldenStep, len(goldenRows))
	for i, row := range goldenRows {
		idx, ok := clusterIndex[row.ClusterNumber]
		if !ok {
			return nil, errs.New(errs.BadGoldenSteps, "golden step references unknown cluster number").
				With("cluster_number", row.ClusterNumber)
		}
		goldenSteps[i] = GoldenStep{
			Metrics:      metricsFromRow(row.Metrics),
			Nu1:          nuBundleFrom(row.Nu1),
			Nu2:          nuBundleFrom(row.Nu2),
			Pucker1:      names.PuckerFromName(row.Pucker1),
			Pucker2:      names.PuckerFromName(row.Pucker2),
			Name:         row.Name,
			ClusterNum:   row.ClusterNumber,
			ClusterIndex: idx,
		}
	}
	sort.SliceStable(goldenSteps, func(i, j int) bool {
		return goldenSteps[i].ClusterIndex < goldenSteps[j].ClusterIndex
	})

	if limits.AvgNeighboursCutoff <= 0 || limits.NearestNeighbourCutoff <= 0 ||
		limits.TotalDistanceCutoff <= 0 || limits.PseudorotationCutoff <= 0 ||
		limits.MinClusterVotes <= 0 || limits.MinNeighbours < 1 ||
		limits.UsedNeighbours < limits.MinNeighbours {
		return nil, errs.New(errs.BadClassificationLimits, "invalid classification limits")
	}

	var pct [101]float64
	copy(pct[:], percentiles)

	extRefClouds := make([][]structtypes.Vec3, len(clusters))
	for _, row := range extBackboneRows {
		idx, ok := clusterIndex[row.ClusterNumber]
		if !ok {
			return nil, errs.New(errs.BadData, "extended-backbone reference row references unknown cluster number").
				With("cluster_number", row.ClusterNumber)
		}
		cloud := make([]structtypes.Vec3, 18)
		for p, xyz := range row.Points {
			cloud[p] = structtypes.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
		extRefClouds[idx] = cloud
	}

	ctx := &Context{
		clusters:      clusters,
		clusterIndex:  clusterIndex,
		goldenSteps:   goldenSteps,
		confalsByIdx:  confalsByIdx,
		nuAnglesByIdx: nuAnglesByIdx,
		percentiles:   pct,
		closeEnough:   closeEnoughRMSD,
		limits:        limits,
		extRefClouds:  extRefClouds,
	}
	return ctx, nil
}

// deriveMetric widens a table-supplied mean/deviation into a
// ClassificationMetric, applying the multiplier appropriate to metric
// index m (0..8 torsions, 9 CC, 10 NN, 11 mu) and wrapping angular bounds
// into [0, 2pi).
func deriveMetric(m int, mean, deviation float64) ClassificationMetric {
	switch {
	case m <= 8: // backbone torsions
		dev := deviation * backboneTorsionMultiplier
		wrapped := geom.WrapTo2Pi(mean)
		return ClassificationMetric{
			Mean: wrapped, Deviation: dev,
			Min: geom.WrapTo2Pi(mean - dev),
			Max: geom.WrapTo2Pi(mean + dev),
		}
	case m == 9 || m == 10: // CC, NN
		dev := deviation * distanceMultiplier
		return ClassificationMetric{Mean: mean, Deviation: dev, Min: mean - dev, Max: mean + dev}
	default: // mu
		dev := deviation * muTorsionMultiplier
		wrapped := geom.WrapTo2Pi(mean)
		return ClassificationMetric{
			Mean: wrapped, Deviation: dev,
			Min: geom.WrapTo2Pi(mean - dev),
			Max: geom.WrapTo2Pi(mean + dev),
		}
	}
}

func deriveNuMetric(mean, deviation float64) ClassificationMetric {
	wrappedMean := geom.WrapTo2Pi(mean)
	return ClassificationMetric{
		Mean: wrappedMean, Deviation: deviation,
		Min: geom.WrapTo2Pi(wrappedMean - deviation),
		Max: geom.WrapTo2Pi(wrappedMean + deviation),
	}
}

func nuBundleFrom(v [5]float64) ribose.NuBundle {
	return ribose.NuBundle{Nu: v}
}

// metricsFromRow splits a flat 12-value row (nine torsions, CC, NN, mu, in
// tables.MetricKeys order) into a stepmetrics.Metrics value.
func metricsFromRow(v [12]float64) stepmetrics.Metrics {
	var m stepmetrics.Metrics
	copy(m.Torsions[:], v[:9])
	m.CC = v[9]
	m.NN = v[10]
	m.Mu = v[11]
	return m
}
