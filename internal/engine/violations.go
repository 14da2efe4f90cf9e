package engine

// Violations is the tagged bit-set of semantic tolerance failures for one
// classified step (spec section 9 "Violations bit-field"). It is
// independent of the error-code channel in internal/errs: a step with
// Violations != 0 is still a valid, fully-measured ClassifiedStep.
type Violations uint32

const (
	DeltaTorsionAngleRejected Violations = 1 << iota
	NotEnoughNearestNeighbours
	BestClusterDoesNotHaveEnoughVotes
	AvgNeighboursTorsionsTooDifferent
	NeighbourTorsionsTooDifferent
	CcTooLow
	CcTooHigh
	NnTooLow
	NnTooHigh
	MuTooLow
	MuTooHigh
	TotalDistanceTooHigh
	FirstPseudorotationTooDifferent
	SecondPseudorotationTooDifferent
	UnassignedButCloseEnough
)

// Has reports whether v contains flag.
func (v Violations) Has(flag Violations) bool { return v&flag != 0 }

// torsionBit returns the bit for torsion index i (0 = delta1), matching
// the fixed order (delta1,epsilon1,zeta1,alpha2,beta2,gamma2,delta2,chi1,chi2).
func torsionBit(i int) uint16 { return 1 << uint(i) }
