package engine

import "math"

// minScore floors a per-metric confal score so a wildly distorted
// measurement never drives inv_total to infinity.
const minScore = 1e-300

// confalScore computes the confal total for one classified step (spec
// section 4.8): a per-metric exponential score against the cluster's
// confal sigma, harmonic-meaned over the twelve metrics and zeroed when
// any tolerance violation is present.
func confalScore(ctx *Context, clusterIdx int, metricDiffs [12]float64, violations Violations) float64 {
	cs := ctx.confalsByIdx[clusterIdx]
	var invTotal float64
	for i := 0; i < 12; i++ {
		diff := metricDiffs[i]
		if i != 9 && i != 10 {
			diff = radToDeg(diff)
		}
		sigma := cs.sigma[i]
		var score float64
		if sigma == 0 {
			if diff == 0 {
				score = 100
			} else {
				score = minScore
			}
		} else {
			score = 100 * math.Exp(-(diff*diff)/(2*sigma*sigma))
			if score < minScore {
				score = minScore
			}
		}
		invTotal += 1 / score
	}

	if violations != 0 {
		return 0
	}
	harmonic := 12 / invTotal
	return math.Trunc(harmonic + 0.5)
}

// ConfalSummary is the aggregate result of averaging confal scores over a
// set of classified steps.
type ConfalSummary struct {
	Score      float64
	Percentile float64
}

// AverageConfal arithmetic-means the confal totals of steps and looks up
// the resulting percentile. An empty input yields the zero summary.
func AverageConfal(ctx *Context, steps []ClassifiedStep) ConfalSummary {
	if len(steps) == 0 {
		return ConfalSummary{}
	}
	var sum float64
	for _, s := range steps {
		sum += s.Confal
	}
	avg := sum / float64(len(steps))
	return ConfalSummary{Score: avg, Percentile: ConfalPercentile(ctx, avg)}
}

// AverageConfalAttempted is AverageConfal over only the successful
// elements of a classify_steps batch. If every element failed, it yields
// the zero summary.
func AverageConfalAttempted(ctx *Context, attempted []AttemptedStep) ConfalSummary {
	var ok []ClassifiedStep
	for _, a := range attempted {
		if a.Status == nil {
			ok = append(ok, a.Step)
		}
	}
	return AverageConfal(ctx, ok)
}

// ConfalPercentile looks up the percentile table entry for score,
// returning -1 if score falls outside [0, 100].
func ConfalPercentile(ctx *Context, score float64) float64 {
	if score < 0 || score > 100 {
		return -1
	}
	return ctx.percentiles[int(math.Floor(score))]
}
