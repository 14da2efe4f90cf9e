package engine

import (
	"math"
	"testing"
)

func TestCircularMeanOfIdenticalAnglesIsThatAngle(t *testing.T) {
	got := circularMean([]float64{degToRad(30), degToRad(30), degToRad(30)})
	if math.Abs(got-degToRad(30)) > 1e-9 {
		t.Fatalf("expected circular mean of identical angles to equal the angle, got %v", got)
	}
}

func TestCircularMeanAcrossSeamStaysNearTheSeam(t *testing.T) {
	// 359 degrees and 1 degree average to 0, not 180.
	got := circularMean([]float64{degToRad(359), degToRad(1)})
	wrapped := got
	if wrapped > math.Pi {
		wrapped -= 2 * math.Pi
	}
	if math.Abs(wrapped) > 1e-6 {
		t.Fatalf("expected a seam-straddling circular mean near 0, got %v rad", got)
	}
}

func TestVoteAccumulatesScoresPerCluster(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	torsions := baseTorsions()
	m := flatMetrics(torsions, 5, 5, degToRad(10))

	neighbours := []neighbour{
		{goldenIdx: 0, clusterIdx: 0, dist: 0.1},
		{goldenIdx: 0, clusterIdx: 0, dist: 0.1},
		{goldenIdx: 1, clusterIdx: 1, dist: 50},
	}
	// perturb so scores aren't both "identical match" (score would be +Inf either way)
	m.Torsions[0] += degToRad(0.5)

	winnerIdx, winnerTotal := vote(ctx, m, neighbours)
	if winnerIdx != 0 {
		t.Fatalf("expected cluster 0 (voted twice) to win over cluster 1 (voted once), got %d", winnerIdx)
	}
	if winnerTotal <= 0 {
		t.Fatalf("expected a positive winning vote total, got %v", winnerTotal)
	}
}

func TestVoteBreaksTiesByFirstSeenCluster(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	torsions := baseTorsions()
	m := flatMetrics(torsions, 5, 5, degToRad(10))
	m.Torsions[0] += degToRad(0.5)

	// Both neighbours are equidistant copies of the same underlying golden
	// step but tagged to different clusters, so their vote scores tie
	// exactly; cluster 1 is listed first and must win the tie.
	neighbours := []neighbour{
		{goldenIdx: 0, clusterIdx: 1, dist: 0.1},
		{goldenIdx: 0, clusterIdx: 0, dist: 0.1},
	}
	winnerIdx, _ := vote(ctx, m, neighbours)
	if winnerIdx != 1 {
		t.Fatalf("expected the first-seen cluster (1) to win an exact tie, got %d", winnerIdx)
	}
}

func TestVoteAndVerifyFallsBackToEmergencyWhenNotEnoughNeighbours(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	ctx.limits.MinNeighbours = 3
	ctx.limits.MinClusterVotes = 0.0001
	torsions := baseTorsions()
	torsions[0] += degToRad(1)
	m := flatMetrics(torsions, 5.1, 5.1, degToRad(10.5))

	neighbours := []neighbour{{goldenIdx: 0, clusterIdx: 0, dist: 0.2}}
	emergency := neighbour{goldenIdx: 1, clusterIdx: 1, dist: 9}

	assignedIdx, earlyViolations := resolveCluster(ctx, m, neighbours, 1, emergency, false)
	if !earlyViolations.Has(NotEnoughNearestNeighbours) {
		t.Fatal("expected NotEnoughNearestNeighbours when admitted < MinNeighbours")
	}
	if assignedIdx != emergency.clusterIdx {
		t.Fatalf("expected fallback to the emergency candidate's cluster, got %d", assignedIdx)
	}

	res := voteAndVerify(ctx, m, neighbours, 1, assignedIdx, earlyViolations, 0, 0, 0, false)
	if !res.violations.Has(NotEnoughNearestNeighbours) {
		t.Fatal("expected NotEnoughNearestNeighbours to survive into the verify result")
	}
	if res.clusterIdx != emergency.clusterIdx {
		t.Fatalf("expected fallback to the emergency candidate's cluster, got %d", res.clusterIdx)
	}
}

func TestVoteAndVerifyFallsBackWhenVotesTooLow(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	ctx.limits.MinNeighbours = 1
	ctx.limits.MinClusterVotes = math.MaxFloat64 // unreachable, forces the low-vote fallback
	torsions := baseTorsions()
	torsions[0] += degToRad(1)
	m := flatMetrics(torsions, 5.1, 5.1, degToRad(10.5))

	neighbours := []neighbour{{goldenIdx: 0, clusterIdx: 0, dist: 0.2}}
	emergency := neighbour{goldenIdx: 1, clusterIdx: 1, dist: 9}

	assignedIdx, earlyViolations := resolveCluster(ctx, m, neighbours, 1, emergency, false)
	if !earlyViolations.Has(BestClusterDoesNotHaveEnoughVotes) {
		t.Fatal("expected BestClusterDoesNotHaveEnoughVotes when the winning cluster's vote total is below the floor")
	}
	if assignedIdx != emergency.clusterIdx {
		t.Fatalf("expected fallback to the emergency candidate's cluster, got %d", assignedIdx)
	}

	res := voteAndVerify(ctx, m, neighbours, 1, assignedIdx, earlyViolations, 0, 0, 0, false)
	if res.clusterIdx != emergency.clusterIdx {
		t.Fatalf("expected fallback to the emergency candidate's cluster, got %d", res.clusterIdx)
	}
}

func TestVoteAndVerifyDeltaRejectionFlagPersistsThroughFallback(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	ctx.limits.MinNeighbours = 1
	ctx.limits.MinClusterVotes = 0.0001
	m := flatMetrics(baseTorsions(), 5, 5, degToRad(10))
	emergency := neighbour{goldenIdx: 1, clusterIdx: 1, dist: 9}

	assignedIdx, earlyViolations := resolveCluster(ctx, m, []neighbour{emergency}, 0, emergency, true)
	if !earlyViolations.Has(DeltaTorsionAngleRejected) {
		t.Fatal("expected DeltaTorsionAngleRejected to survive into the result")
	}
	if !earlyViolations.Has(NotEnoughNearestNeighbours) {
		t.Fatal("expected NotEnoughNearestNeighbours since admitted (0) < MinNeighbours")
	}

	res := voteAndVerify(ctx, m, []neighbour{emergency}, 0, assignedIdx, earlyViolations, 0, 0, 0, false)
	if !res.violations.Has(DeltaTorsionAngleRejected) {
		t.Fatal("expected DeltaTorsionAngleRejected to survive into the verify result")
	}
	if !res.violations.Has(NotEnoughNearestNeighbours) {
		t.Fatal("expected NotEnoughNearestNeighbours to survive into the verify result")
	}
}

func TestVoteAndVerifySkipsPerClusterChecksWhenNothingAdmitted(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	ctx.limits.MinNeighbours = 1
	m := flatMetrics(baseTorsions(), 5, 5, degToRad(10))
	emergency := neighbour{goldenIdx: 1, clusterIdx: 1, dist: 9}

	assignedIdx, earlyViolations := resolveCluster(ctx, m, []neighbour{emergency}, 0, emergency, false)
	res := voteAndVerify(ctx, m, []neighbour{emergency}, 0, assignedIdx, earlyViolations, 0, 0, 0, false)
	if res.violations.Has(CcTooLow) || res.violations.Has(CcTooHigh) {
		t.Fatal("per-cluster metric checks must not run when nothing was admitted")
	}
}

func TestVoteAndVerifyCloseEnoughFallbackOnlyAppliesWhenSomethingAdmitted(t *testing.T) {
	ctx := buildTwoClusterContext(t)
	ctx.limits.MinNeighbours = 1
	ctx.closeEnough = 100 // always within tolerance, to isolate the admitted-gating behavior
	m := flatMetrics(baseTorsions(), 5, 5, degToRad(10))
	emergency := neighbour{goldenIdx: 1, clusterIdx: 1, dist: 9}

	assignedIdx, earlyViolations := resolveCluster(ctx, m, []neighbour{emergency}, 0, emergency, false)
	res := voteAndVerify(ctx, m, []neighbour{emergency}, 0, assignedIdx, earlyViolations, 0, 0, 0.01, true)
	if res.violations.Has(UnassignedButCloseEnough) {
		t.Fatal("close-enough-RMSD fallback must not apply when admitted == 0, regardless of RMSD")
	}
}
