package engine

import (
	"math"

	"ntcstep/internal/geom"
	"ntcstep/internal/stepmetrics"
)

func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// vote scores each admitted neighbour by 1/(sum of squared per-metric
// differences), with torsion and mu differences in degrees and CC/NN
// scaled by the distance multiplier, then accumulates scores per cluster
// index. Ties are broken by first-seen cluster (spec section 4.7).
func vote(ctx *Context, m stepmetrics.Metrics, neighbours []neighbour) (winnerIdx int, winnerTotal float64) {
	scores := make(map[int]float64, len(neighbours))
	var order []int

	for _, nb := range neighbours {
		gs := ctx.goldenSteps[nb.goldenIdx]
		sum := 0.0
		for t := 0; t < 9; t++ {
			d := radToDeg(geom.AngleDifference(m.Torsions[t], gs.Metrics.Torsions[t]))
			sum += d * d
		}
		ccDiff := (m.CC - gs.Metrics.CC) * dMul
		nnDiff := (m.NN - gs.Metrics.NN) * dMul
		muDiff := radToDeg(geom.AngleDifference(m.Mu, gs.Metrics.Mu))
		sum += ccDiff*ccDiff + nnDiff*nnDiff + muDiff*muDiff

		var score float64
		if sum == 0 {
			score = math.MaxFloat64
		} else {
			score = 1 / sum
		}

		if _, seen := scores[nb.clusterIdx]; !seen {
			order = append(order, nb.clusterIdx)
		}
		scores[nb.clusterIdx] += score
	}

	winnerIdx = -1
	winnerTotal = -1
	for _, ci := range order {
		if scores[ci] > winnerTotal {
			winnerTotal = scores[ci]
			winnerIdx = ci
		}
	}
	return winnerIdx, winnerTotal
}

// circularMean returns the circular mean of angles (radians), wrapped to
// [0, 2pi).
func circularMean(angles []float64) float64 {
	var sinSum, cosSum float64
	for _, a := range angles {
		sinSum += math.Sin(a)
		cosSum += math.Cos(a)
	}
	return geom.WrapTo2Pi(math.Atan2(sinSum, cosSum))
}

// verifyResult carries everything voting/tolerance-verification produced
// for one step, ready for ClassifiedStep assembly.
type verifyResult struct {
	clusterIdx    int
	violations    Violations
	violAvg       uint16
	violNearest   uint16
	metricDiffs   [12]float64
	avgTorsions   [9]float64
	admittedCount int
}

// resolveCluster runs spec section 4.7 steps 1-3: voting and the two
// neighbour-count/vote-total fallbacks. This determines the cluster a step
// is provisionally assigned to before anything that depends on that
// assignment — RMSD-to-closest-NtC, tolerance checks — runs; ground truth
// computes RMSD only against the cluster resolved here, so it must be
// known first.
func resolveCluster(ctx *Context, m stepmetrics.Metrics, neighbours []neighbour, admitted int, emergency neighbour, rejectDelta bool) (assignedIdx int, violations Violations) {
	if rejectDelta {
		violations |= DeltaTorsionAngleRejected
	}

	winnerIdx, winnerTotal := vote(ctx, m, neighbours)
	assignedIdx = winnerIdx

	if admitted < ctx.limits.MinNeighbours {
		violations |= NotEnoughNearestNeighbours
		assignedIdx = emergency.clusterIdx
	}
	if winnerTotal < ctx.limits.MinClusterVotes && winnerTotal > 0 {
		violations |= BestClusterDoesNotHaveEnoughVotes
		assignedIdx = emergency.clusterIdx
	}
	return assignedIdx, violations
}

// voteAndVerify runs spec section 4.7 steps 4 onward — the tolerance
// checks and the close-enough-RMSD fallback — against the cluster
// resolveCluster already assigned. rmsdToClosest may be 0 with haveRMSD
// false when no extended-backbone reference geometry could be superposed;
// in that case the close-enough fallback never fires.
func voteAndVerify(ctx *Context, m stepmetrics.Metrics, neighbours []neighbour, admitted int, assignedIdx int, violations Violations, p1, p2 float64, rmsdToClosest float64, haveRMSD bool) verifyResult {
	res := verifyResult{clusterIdx: assignedIdx, violations: violations, admittedCount: admitted}

	if admitted > 0 {
		var torsionSamples [9][]float64
		for _, nb := range neighbours {
			gs := ctx.goldenSteps[nb.goldenIdx]
			for t := 0; t < 9; t++ {
				torsionSamples[t] = append(torsionSamples[t], gs.Metrics.Torsions[t])
			}
		}
		for t := 0; t < 9; t++ {
			res.avgTorsions[t] = circularMean(torsionSamples[t])
		}

		nearest := neighbours[0]
		nearestGS := ctx.goldenSteps[nearest.goldenIdx]

		for t := 0; t < 9; t++ {
			if math.Abs(geom.AngleDifference(m.Torsions[t], res.avgTorsions[t])) > ctx.limits.AvgNeighboursCutoff {
				res.violations |= AvgNeighboursTorsionsTooDifferent
				res.violAvg |= torsionBit(t)
			}
			if math.Abs(geom.AngleDifference(m.Torsions[t], nearestGS.Metrics.Torsions[t])) > ctx.limits.NearestNeighbourCutoff {
				res.violations |= NeighbourTorsionsTooDifferent
				res.violNearest |= torsionBit(t)
			}
		}

		if res.violations.Has(AvgNeighboursTorsionsTooDifferent) || res.violations.Has(NeighbourTorsionsTooDifferent) {
			return res
		}

		cluster := ctx.clusters[assignedIdx]
		for t := 0; t < 9; t++ {
			res.metricDiffs[t] = geom.AngleDifference(geom.WrapTo2Pi(m.Torsions[t]), cluster.Metrics[t].Mean)
		}
		res.metricDiffs[9] = m.CC - cluster.Metrics[9].Mean
		res.metricDiffs[10] = m.NN - cluster.Metrics[10].Mean
		res.metricDiffs[11] = geom.AngleDifference(m.Mu, cluster.Metrics[11].Mean)

		if m.CC < cluster.Metrics[9].Min {
			res.violations |= CcTooLow
		} else if m.CC > cluster.Metrics[9].Max {
			res.violations |= CcTooHigh
		}
		if m.NN < cluster.Metrics[10].Min {
			res.violations |= NnTooLow
		} else if m.NN > cluster.Metrics[10].Max {
			res.violations |= NnTooHigh
		}
		if geom.AngleDifference(m.Mu, cluster.Metrics[11].Min) < 0 {
			res.violations |= MuTooLow
		}
		if geom.AngleDifference(m.Mu, cluster.Metrics[11].Max) > 0 {
			res.violations |= MuTooHigh
		}

		var totalDist float64
		for t := 0; t < 7; t++ {
			totalDist += geom.WrapTo2Pi(m.Torsions[t]) - cluster.Metrics[t].Mean
		}
		if math.Abs(totalDist) > ctx.limits.TotalDistanceCutoff {
			res.violations |= TotalDistanceTooHigh
		}

		if math.Abs(geom.AngleDifference(p1, cluster.PseudoRef1)) > ctx.limits.PseudorotationCutoff {
			res.violations |= FirstPseudorotationTooDifferent
		}
		if math.Abs(geom.AngleDifference(p2, cluster.PseudoRef2)) > ctx.limits.PseudorotationCutoff {
			res.violations |= SecondPseudorotationTooDifferent
		}

		if res.violations != 0 && haveRMSD && rmsdToClosest <= ctx.closeEnough {
			res.violations |= UnassignedButCloseEnough
		}
	}

	return res
}
