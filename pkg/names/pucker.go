package names

import "strings"

// SugarPucker is the ribose ring pucker, discretised from the
// pseudorotation phase P into ten 36-degree-wide bins.
type SugarPucker int

const (
	PuckerInvalid SugarPucker = iota
	PuckerC3Endo              // bin 0:   0-36 deg
	PuckerC4Exo               // bin 1:  36-72
	PuckerO4Endo               // bin 2:  72-108
	PuckerC1Exo                // bin 3: 108-144
	PuckerC2Endo               // bin 4: 144-180
	PuckerC3Exo                // bin 5: 180-216
	PuckerC4Endo               // bin 6: 216-252
	PuckerO4Exo                // bin 7: 252-288
	PuckerC1Endo               // bin 8: 288-324
	PuckerC2Exo                // bin 9: 324-360
	puckerCount
)

// PuckerBins lists the pucker enum values in the fixed bin order used by
// pseudorotation-phase discretisation (bin i covers [i*36, (i+1)*36) deg).
var PuckerBins = [10]SugarPucker{
	PuckerC3Endo, PuckerC4Exo, PuckerO4Endo, PuckerC1Exo, PuckerC2Endo,
	PuckerC3Exo, PuckerC4Endo, PuckerO4Exo, PuckerC1Endo, PuckerC2Exo,
}

type puckerSpec struct {
	atom string // ring atom without the prime, e.g. "C3"
	exo  bool   // true: "exo", false: "endo"
}

var puckerSpecs = map[SugarPucker]puckerSpec{
	PuckerC3Endo: {"C3", false},
	PuckerC4Exo:  {"C4", true},
	PuckerO4Endo: {"O4", false},
	PuckerC1Exo:  {"C1", true},
	PuckerC2Endo: {"C2", false},
	PuckerC3Exo:  {"C3", true},
	PuckerC4Endo: {"C4", false},
	PuckerO4Exo:  {"O4", true},
	PuckerC1Endo: {"C1", false},
	PuckerC2Exo:  {"C2", true},
}

func (p SugarPucker) spec() (puckerSpec, bool) {
	s, ok := puckerSpecs[p]
	return s, ok
}

// Short returns the brevity form, e.g. "C1end" or "C4exo".
func (p SugarPucker) Short() string {
	s, ok := p.spec()
	if !ok {
		return "NANT"
	}
	if s.exo {
		return s.atom + "exo"
	}
	return s.atom + "end"
}

// Medium returns the intermediate form, e.g. "C1endo" or "C4exo".
func (p SugarPucker) Medium() string {
	s, ok := p.spec()
	if !ok {
		return "NANT"
	}
	if s.exo {
		return s.atom + "exo"
	}
	return s.atom + "endo"
}

// Long returns the full form, e.g. "C1' endo" or "C4' exo".
func (p SugarPucker) Long() string {
	s, ok := p.spec()
	if !ok {
		return "NANT"
	}
	word := "endo"
	if s.exo {
		word = "exo"
	}
	return s.atom + "' " + word
}

// String is the medium brevity form.
func (p SugarPucker) String() string {
	return p.Medium()
}

var puckerByName map[string]SugarPucker

func init() {
	puckerByName = make(map[string]SugarPucker)
	for p := range puckerSpecs {
		puckerByName[p.Short()] = p
		puckerByName[p.Medium()] = p
		puckerByName[p.Long()] = p
	}
}

// PuckerFromName converts any of the three brevity forms to a SugarPucker.
// Unknown names map to PuckerInvalid.
func PuckerFromName(name string) SugarPucker {
	if v, ok := puckerByName[strings.TrimSpace(name)]; ok {
		return v
	}
	return PuckerInvalid
}
