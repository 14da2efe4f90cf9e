package engine

import (
	"ntcstep/internal/errs"
	"ntcstep/internal/ribose"
	"ntcstep/internal/segmentation"
	"ntcstep/internal/stepmetrics"
	"ntcstep/internal/tracing"
	"ntcstep/pkg/names"
	"ntcstep/pkg/structtypes"
)

// Tracepoint IDs for the classification pipeline (spec section 5). Pass
// these to a *tracing.Tracer's EnableID/DisableID to toggle individual
// stages; a nil tracer ignores them entirely.
const (
	TPRiboseExtraction tracing.ID = iota
	TPStepMetrics
	TPNeighbourSearch
	TPExtendedBackboneRMSD
	TPVoteAndVerify
	TPConfalScore
)

// ClassifyStep runs the full single-pass classification pipeline (spec
// section 4.11) over one dinucleotide step with tracing off. Equivalent
// to ClassifyStepTraced(step, ctx, nil).
func ClassifyStep(step structtypes.DinucleotideStep, ctx *Context) (ClassifiedStep, error) {
	return ClassifyStepTraced(step, ctx, nil)
}

// ClassifyStepTraced is ClassifyStep with an explicit tracer. Passing nil
// is identical to ClassifyStep and costs one nil check per tracepoint.
func ClassifyStepTraced(step structtypes.DinucleotideStep, ctx *Context, tracer *tracing.Tracer) (ClassifiedStep, error) {
	if step.FirstResidue.Len() == 0 || step.SecondResidue.Len() == 0 {
		return ClassifiedStep{}, errs.New(errs.InvalidArgument, "classify_step: not a dinucleotide step")
	}
	if segmentation.HasMultipleAltIDs(step) {
		return ClassifiedStep{}, errs.New(errs.MultipleAltIds, "classify_step: ambiguous alternate locations")
	}

	stop := tracer.Span(TPRiboseExtraction, "ribose_extraction", "")
	ring1, err := ribose.ExtractRing(step.FirstResidue)
	if err != nil {
		stop()
		return ClassifiedStep{}, err
	}
	ring2, err := ribose.ExtractRing(step.SecondResidue)
	if err != nil {
		stop()
		return ClassifiedStep{}, err
	}
	nu1, err := ribose.NuTorsions(ring1)
	if err != nil {
		stop()
		return ClassifiedStep{}, err
	}
	nu2, err := ribose.NuTorsions(ring2)
	if err != nil {
		stop()
		return ClassifiedStep{}, err
	}
	p1, tau1 := ribose.Pseudorotation(nu1)
	p2, tau2 := ribose.Pseudorotation(nu2)
	pucker1 := ribose.Pucker(p1)
	pucker2 := ribose.Pucker(p2)
	stop()

	stop = tracer.Span(TPStepMetrics, "step_metrics", "")
	m, err := stepmetrics.Measure(step.FirstResidue, step.SecondResidue)
	stop()
	if err != nil {
		return ClassifiedStep{}, err
	}

	stop = tracer.Span(TPNeighbourSearch, "neighbour_search", "")
	neighbours, admitted, emergency, rejectDelta, err := findNeighbours(ctx, m)
	stop()
	if err != nil {
		return ClassifiedStep{}, err
	}

	stop = tracer.Span(TPVoteAndVerify, "vote_and_verify", "")
	assignedIdx, earlyViolations := resolveCluster(ctx, m, neighbours, admitted, emergency, rejectDelta)
	stop()

	var rmsd float64
	var haveRMSD bool
	stop = tracer.Span(TPExtendedBackboneRMSD, "extended_backbone_rmsd", "")
	if cloud, extErr := ExtractExtendedBackbone(step); extErr == nil {
		if d, rerr := rmsdToCluster(ctx, cloud, assignedIdx); rerr == nil {
			rmsd, haveRMSD = d, true
		}
	}
	stop()

	stop = tracer.Span(TPVoteAndVerify, "vote_and_verify", "")
	res := voteAndVerify(ctx, m, neighbours, admitted, assignedIdx, earlyViolations, p1, p2, rmsd, haveRMSD)
	stop()
	cluster := ctx.clusters[res.clusterIdx]

	out := ClassifiedStep{
		ClosestNtC:   cluster.NtC,
		ClosestCANA:  cluster.CANA,
		Nu1:          nu1,
		Nu2:          nu2,
		P1:           p1,
		P2:           p2,
		Tau1:         tau1,
		Tau2:         tau2,
		Pucker1:      pucker1,
		Pucker2:      pucker2,
		Violations:   res.violations,

		ViolatingTorsionsAverage: res.violAvg,
		ViolatingTorsionsNearest: res.violNearest,
	}
	if haveRMSD {
		out.RMSDToClosestNtC = rmsd
	}
	out.ClosestGoldenStep = ctx.goldenSteps[emergency.goldenIdx].Name

	copy(out.Metrics[:9], m.Torsions[:9])
	out.Metrics[9] = m.CC
	out.Metrics[10] = m.NN
	out.Metrics[11] = m.Mu
	out.MetricDiffs = res.metricDiffs

	for n := 0; n < 5; n++ {
		out.NuDiff1[n] = cluster.Nu1[n].Mean - nu1.Nu[n]
		out.NuDiff2[n] = cluster.Nu2[n].Mean - nu2.Nu[n]
	}

	if res.violations == 0 {
		out.AssignedNtC = cluster.NtC
		out.AssignedCANA = cluster.CANA
	} else {
		out.AssignedNtC = names.NtCInvalid
		out.AssignedCANA = names.CANAInvalid
	}

	stop = tracer.Span(TPConfalScore, "confal_score", "")
	out.Confal = confalScore(ctx, res.clusterIdx, res.metricDiffs, res.violations)
	stop()

	return out, nil
}

// ClassifySteps classifies each step independently, preserving input
// order. An empty input is NothingToClassify.
func ClassifySteps(steps []structtypes.DinucleotideStep, ctx *Context) ([]AttemptedStep, error) {
	return ClassifyStepsTraced(steps, ctx, nil)
}

// ClassifyStepsTraced is ClassifySteps with an explicit tracer threaded
// into every per-step classification call.
func ClassifyStepsTraced(steps []structtypes.DinucleotideStep, ctx *Context, tracer *tracing.Tracer) ([]AttemptedStep, error) {
	if len(steps) == 0 {
		return nil, errs.New(errs.NothingToClassify, "classify_steps: empty input")
	}
	out := make([]AttemptedStep, len(steps))
	for i, s := range steps {
		cs, err := ClassifyStepTraced(s, ctx, tracer)
		out[i] = AttemptedStep{Status: err, Step: cs}
	}
	return out, nil
}

// ClassificationClusterForNtC returns the reference cluster assigned to
// ntc, or InvalidArgument if no cluster carries that class.
func ClassificationClusterForNtC(ctx *Context, ntc names.NtC) (Cluster, error) {
	for _, c := range ctx.clusters {
		if c.NtC == ntc {
			return c, nil
		}
	}
	return Cluster{}, errs.New(errs.InvalidArgument, "no cluster for NtC class").With("ntc", ntc.String())
}

// ConfalRow is the confal sigma record for one cluster, returned by
// ConfalForNtC.
type ConfalRow struct {
	Sigma    [12]float64
	NuSigma1 [5]float64
	NuSigma2 [5]float64
}

// ConfalForNtC returns the confal sigma row for ntc's cluster, or
// InvalidArgument if no cluster carries that class.
func ConfalForNtC(ctx *Context, ntc names.NtC) (ConfalRow, error) {
	for i, c := range ctx.clusters {
		if c.NtC == ntc {
			cs := ctx.confalsByIdx[i]
			return ConfalRow{Sigma: cs.sigma, NuSigma1: cs.nuSigma1, NuSigma2: cs.nuSigma2}, nil
		}
	}
	return ConfalRow{}, errs.New(errs.InvalidArgument, "no confal row for NtC class").With("ntc", ntc.String())
}

// DestroyContext releases a context's owned storage. The context must not
// be used afterward.
func DestroyContext(ctx *Context) {
	*ctx = Context{}
}
