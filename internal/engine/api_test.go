package engine

import (
	"testing"

	"ntcstep/internal/errs"
	"ntcstep/internal/geom"
	"ntcstep/internal/ribose"
	"ntcstep/internal/stepmetrics"
	"ntcstep/internal/tables"
	"ntcstep/internal/tracing"
	"ntcstep/pkg/names"
	"ntcstep/pkg/structtypes"
)

func mkAtom(name, comp string, x, y, z float64) structtypes.Atom {
	return structtypes.Atom{
		AuthAtomID: name, LabelAtomID: name,
		AuthCompID: comp, LabelCompID: comp,
		Coords: structtypes.Vec3{X: x, Y: y, Z: z},
	}
}

func adenineStep(t *testing.T) structtypes.DinucleotideStep {
	t.Helper()
	res1 := []structtypes.Atom{
		mkAtom("C5'", "DA", 0, 0, 0),
		mkAtom("C4'", "DA", 1.5, 0, 0),
		mkAtom("O4'", "DA", 2.0, 1.2, 0.3),
		mkAtom("C3'", "DA", 2.2, -1.1, 0.4),
		mkAtom("O3'", "DA", 3.6, -1.3, 0.9),
		mkAtom("C2'", "DA", 1.8, -1.0, -1.0),
		mkAtom("C1'", "DA", 1.9, 1.4, -0.9),
		mkAtom("N9", "DA", 2.5, 2.7, -1.3),
		mkAtom("C4", "DA", 3.9, 2.9, -1.1),
	}
	res2 := []structtypes.Atom{
		mkAtom("P", "DA", 4.9, -0.6, 1.2),
		mkAtom("O5'", "DA", 4.6, 0.9, 1.6),
		mkAtom("C5'", "DA", 5.3, 1.8, 2.5),
		mkAtom("C4'", "DA", 6.8, 1.9, 2.3),
		mkAtom("O4'", "DA", 7.3, 3.1, 3.0),
		mkAtom("C3'", "DA", 7.6, 0.7, 2.8),
		mkAtom("O3'", "DA", 9.0, 0.5, 2.5),
		mkAtom("C2'", "DA", 7.0, 0.6, 4.3),
		mkAtom("C1'", "DA", 7.9, 3.0, 4.0),
		mkAtom("N9", "DA", 8.7, 4.1, 4.4),
		mkAtom("C4", "DA", 10.0, 4.0, 4.2),
	}
	all := append(append([]structtypes.Atom{}, res1...), res2...)
	return structtypes.DinucleotideStep{
		Atoms:        all,
		FirstResidue: structtypes.NewView(res1),
		SecondResidue: structtypes.NewView(res2),
	}
}

// buildSelfGroundedContext measures the fixture step itself and uses that
// measurement (with a small perturbation, to dodge the self-identity
// skip) as the lone golden step and cluster mean, so classification has
// something to match against without hand-derived reference numbers.
func buildSelfGroundedContext(t *testing.T) (*Context, structtypes.DinucleotideStep) {
	t.Helper()
	step := adenineStep(t)
	m, err := stepmetrics.Measure(step.FirstResidue, step.SecondResidue)
	if err != nil {
		t.Fatalf("fixture measure failed: %v", err)
	}
	ring1, err := ribose.ExtractRing(step.FirstResidue)
	if err != nil {
		t.Fatalf("fixture ring1 failed: %v", err)
	}
	ring2, err := ribose.ExtractRing(step.SecondResidue)
	if err != nil {
		t.Fatalf("fixture ring2 failed: %v", err)
	}
	nu1, err := ribose.NuTorsions(ring1)
	if err != nil {
		t.Fatalf("fixture nu1 failed: %v", err)
	}
	nu2, err := ribose.NuTorsions(ring2)
	if err != nil {
		t.Fatalf("fixture nu2 failed: %v", err)
	}
	p1, _ := ribose.Pseudorotation(nu1)
	p2, _ := ribose.Pseudorotation(nu2)

	clusterRow := tables.ClusterRow{Number: 1, NtCName: "AA00", CANAName: "AAA", PseudoRef1: p1, PseudoRef2: p2}
	for i := 0; i < 9; i++ {
		clusterRow.MetricMean[i] = geom.WrapTo2Pi(m.Torsions[i])
		clusterRow.MetricDeviation[i] = 0.3
	}
	clusterRow.MetricMean[9], clusterRow.MetricDeviation[9] = m.CC, 2.0
	clusterRow.MetricMean[10], clusterRow.MetricDeviation[10] = m.NN, 2.0
	clusterRow.MetricMean[11], clusterRow.MetricDeviation[11] = geom.WrapTo2Pi(m.Mu), 0.3

	goldenRow := tables.GoldenStepRow{ClusterNumber: 1, Name: "self-grounded", Pucker1: "C3endo", Pucker2: "C3endo"}
	for i := 0; i < 9; i++ {
		goldenRow.Metrics[i] = m.Torsions[i] + 0.02
	}
	goldenRow.Metrics[9], goldenRow.Metrics[10], goldenRow.Metrics[11] = m.CC, m.NN, m.Mu

	confalRow := tables.ConfalRow{ClusterNumber: 1}
	for i := range confalRow.Sigma {
		confalRow.Sigma[i] = 20
	}

	nuRow := tables.NuAngleRow{ClusterNumber: 1}
	for i := 0; i < 5; i++ {
		nuRow.Mean1[i], nuRow.Deviation1[i] = nu1.Nu[i], 0.5
		nuRow.Mean2[i], nuRow.Deviation2[i] = nu2.Nu[i], 0.5
	}

	percentiles := make([]float64, 101)
	for i := range percentiles {
		percentiles[i] = float64(i)
	}

	ctx, err := NewContext(
		[]tables.ClusterRow{clusterRow},
		[]tables.GoldenStepRow{goldenRow},
		[]tables.ConfalRow{confalRow},
		[]tables.NuAngleRow{nuRow},
		nil,
		percentiles,
		validLimits(),
		0.5,
	)
	if err != nil {
		t.Fatalf("context construction failed: %v", err)
	}
	return ctx, step
}

func TestClassifyStepRunsFullPipelineWithoutError(t *testing.T) {
	ctx, step := buildSelfGroundedContext(t)
	got, err := ClassifyStep(step, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Internal consistency invariants (spec section 4.7 assignment rule),
	// independent of the exact geometry the fixture happens to produce.
	if got.Violations == 0 {
		if got.AssignedNtC != names.NtCAA00 || got.AssignedCANA != names.CANAAAA {
			t.Fatalf("zero violations must assign the winning cluster's class, got %v/%v", got.AssignedNtC, got.AssignedCANA)
		}
		if got.Confal <= 0 {
			t.Fatalf("a violation-free classification should score a positive confal, got %v", got.Confal)
		}
	} else {
		if got.AssignedNtC != names.NtCInvalid || got.AssignedCANA != names.CANAInvalid {
			t.Fatalf("any violation must leave assigned class INVALID, got %v/%v", got.AssignedNtC, got.AssignedCANA)
		}
		if got.Confal != 0 {
			t.Fatalf("a violated classification must score confal 0, got %v", got.Confal)
		}
	}
	if got.ClosestGoldenStep == "" {
		t.Fatal("expected a closest golden step name to be populated")
	}
}

func TestClassifyStepsEmptyInputIsNothingToClassify(t *testing.T) {
	ctx, _ := buildSelfGroundedContext(t)
	_, err := ClassifySteps(nil, ctx)
	if errs.CodeOf(err) != errs.NothingToClassify {
		t.Fatalf("expected NothingToClassify, got %v", err)
	}
}

func TestClassifyStepsPreservesOrderAndCount(t *testing.T) {
	ctx, step := buildSelfGroundedContext(t)
	attempted, err := ClassifySteps([]structtypes.DinucleotideStep{step, step, step}, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempted) != 3 {
		t.Fatalf("expected 3 attempted steps, got %d", len(attempted))
	}
	for _, a := range attempted {
		if a.Status != nil {
			t.Fatalf("unexpected per-step error: %v", a.Status)
		}
	}
}

func TestClassifyStepRejectsEmptyResidues(t *testing.T) {
	ctx, _ := buildSelfGroundedContext(t)
	_, err := ClassifyStep(structtypes.DinucleotideStep{}, ctx)
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("expected InvalidArgument for a non-step structure, got %v", err)
	}
}

func TestClassificationClusterForNtCUnknownIsInvalidArgument(t *testing.T) {
	ctx, _ := buildSelfGroundedContext(t)
	_, err := ClassificationClusterForNtC(ctx, names.NtCBB04)
	if errs.CodeOf(err) != errs.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestClassifyStepTracedRecordsEveryStage(t *testing.T) {
	ctx, step := buildSelfGroundedContext(t)
	tracer := tracing.New()
	tracer.SetEnabled(true)

	if _, err := ClassifyStepTraced(step, ctx, tracer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := tracer.Dump()
	if len(records) != 6 {
		t.Fatalf("expected all 6 pipeline tracepoints to be recorded, got %d: %+v", len(records), records)
	}
}

func TestClassifyStepTracedNilTracerBehavesLikeUntraced(t *testing.T) {
	ctx, step := buildSelfGroundedContext(t)
	got, err := ClassifyStepTraced(step, ctx, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, err := ClassifyStep(step, ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.AssignedNtC != want.AssignedNtC || got.Confal != want.Confal {
		t.Fatal("a nil tracer must not change classification output")
	}
}

func TestClassificationClusterForNtCFound(t *testing.T) {
	ctx, _ := buildSelfGroundedContext(t)
	c, err := ClassificationClusterForNtC(ctx, names.NtCAA00)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Number != 1 {
		t.Fatalf("expected cluster number 1, got %d", c.Number)
	}
}
