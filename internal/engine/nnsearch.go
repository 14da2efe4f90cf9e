package engine

import (
	"math"

	"ntcstep/internal/errs"
	"ntcstep/internal/geom"
	"ntcstep/internal/stepmetrics"
)

// neighbour is one admitted or emergency golden-step candidate, keyed by
// its 12-D Euclidean distance to the measured step.
type neighbour struct {
	goldenIdx  int
	clusterIdx int
	dist       float64
}

var (
	deltaGateLow  = degToRad(55)
	deltaGateHigh = degToRad(185)
)

// findNeighbours implements spec section 4.6: it walks the golden steps
// in cluster order, tracks the single closest ("emergency") candidate
// regardless of gating, and — unless the delta pre-gate rejects the step
// outright — admits up to limits.UsedNeighbours candidates into a
// distance-sorted list, rejecting whole contiguous cluster blocks that
// fail their reference interval.
func findNeighbours(ctx *Context, m stepmetrics.Metrics) (neighbours []neighbour, admitted int, emergency neighbour, rejectDelta bool, err error) {
	wrappedDelta1 := geom.WrapTo2Pi(m.Torsions[stepmetrics.Delta1])
	wrappedDelta2 := geom.WrapTo2Pi(m.Torsions[stepmetrics.Delta2])
	if !inOpenInterval(wrappedDelta1, deltaGateLow, deltaGateHigh) || !inOpenInterval(wrappedDelta2, deltaGateLow, deltaGateHigh) {
		rejectDelta = true
	}

	k := ctx.limits.UsedNeighbours
	var list []neighbour

	emergencyIdx := -1
	emergencyDist := math.MaxFloat64
	lastRejectedCluster := -1

	for gi, gs := range ctx.goldenSteps {
		sumSq := 0.0
		for t := 0; t < 9; t++ {
			d := geom.AngleDifference(m.Torsions[t], gs.Metrics.Torsions[t])
			sumSq += d * d
		}
		if sumSq <= selfIdentitySqTolerance {
			continue
		}

		ccDiff := m.CC - gs.Metrics.CC
		nnDiff := m.NN - gs.Metrics.NN
		muDiff := geom.AngleDifference(m.Mu, gs.Metrics.Mu)

		total := sumSq + (ccDiff*dMulRad)*(ccDiff*dMulRad) + (nnDiff*dMulRad)*(nnDiff*dMulRad) + muDiff*muDiff
		dist := math.Sqrt(total)

		if dist < emergencyDist {
			emergencyDist = dist
			emergencyIdx = gi
		}

		if rejectDelta {
			continue
		}

		clusterIdx := gs.ClusterIndex
		if clusterIdx == lastRejectedCluster {
			continue
		}
		cluster := ctx.clusters[clusterIdx]

		inBounds := true
		for t := 0; t < 9; t++ {
			if !cluster.Metrics[t].inRange(geom.WrapTo2Pi(m.Torsions[t])) {
				inBounds = false
				break
			}
		}
		if inBounds && !cluster.Metrics[11].inRange(geom.WrapTo2Pi(m.Mu)) {
			inBounds = false
		}
		if !inBounds {
			lastRejectedCluster = clusterIdx
			continue
		}

		if m.CC <= cluster.Metrics[9].Min || m.CC >= cluster.Metrics[9].Max {
			inBounds = false
		}
		if inBounds && (m.NN <= cluster.Metrics[10].Min || m.NN >= cluster.Metrics[10].Max) {
			inBounds = false
		}
		if !inBounds {
			lastRejectedCluster = clusterIdx
			continue
		}

		list = insertSorted(list, neighbour{goldenIdx: gi, clusterIdx: clusterIdx, dist: dist}, k)
	}

	if emergencyIdx == -1 {
		return nil, 0, neighbour{}, rejectDelta, errs.New(errs.WrongMetrics, "nearest-neighbour search: no candidate golden step found")
	}

	admitted = len(list)
	emergency = neighbour{
		goldenIdx:  emergencyIdx,
		clusterIdx: ctx.goldenSteps[emergencyIdx].ClusterIndex,
		dist:       emergencyDist,
	}
	if admitted == 0 {
		list = []neighbour{emergency}
	}
	return list, admitted, emergency, rejectDelta, nil
}

func inOpenInterval(v, low, high float64) bool { return v > low && v < high }

// insertSorted inserts n into a distance-ascending slice, keeping at most
// cap entries by dropping the farthest on overflow.
func insertSorted(list []neighbour, n neighbour, capK int) []neighbour {
	i := 0
	for i < len(list) && list[i].dist <= n.dist {
		i++
	}
	list = append(list, neighbour{})
	copy(list[i+1:], list[i:])
	list[i] = n
	if len(list) > capK {
		list = list[:capK]
	}
	return list
}
