// Package segmentation implements spec section 4.2: residue detection,
// alt-id splitting and dinucleotide step extraction from a flat atom
// sequence.
package segmentation

// BaseKind classifies a residue's nucleobase for the purposes of choosing
// the right chi-torsion atom names in internal/stepmetrics (purines use
// N9/C4, pyrimidines use N1/C2).
type BaseKind int

const (
	BaseUnknown BaseKind = iota
	BaseAdenineLike
	BaseGuanineLike
	BaseCytosineLike
	BaseUracilLike
	BaseThymineLike
)

// IsPurine reports whether kind uses the purine (N9/C4) chi-torsion atoms.
func (k BaseKind) IsPurine() bool {
	return k == BaseAdenineLike || k == BaseGuanineLike
}

// nucleotideRegistry maps a residue's (auth) component name to its base
// kind. Unknown names are simply absent and resolve to BaseUnknown via the
// zero value of the map lookup. Includes both the canonical DNA/RNA
// residue names and the common modified-base synonyms the original
// implementation recognises (original_source/src/nucleotide.cpp).
var nucleotideRegistry = map[string]BaseKind{
	// Canonical DNA
	"DA": BaseAdenineLike,
	"DG": BaseGuanineLike,
	"DC": BaseCytosineLike,
	"DT": BaseThymineLike,
	// Canonical RNA
	"A": BaseAdenineLike,
	"G": BaseGuanineLike,
	"C": BaseCytosineLike,
	"U": BaseUracilLike,
	// Common modified bases (synonyms recognised by the original)
	"5MC": BaseCytosineLike, // 5-methylcytosine
	"OMC": BaseCytosineLike, // 2'-O-methylcytidine
	"OMG": BaseGuanineLike,  // 2'-O-methylguanosine
	"OMU": BaseUracilLike,   // 2'-O-methyluridine
	"1MA": BaseAdenineLike,  // 1-methyladenosine
	"2MG": BaseGuanineLike,  // N2-methylguanosine
	"7MG": BaseGuanineLike,  // 7-methylguanosine
	"PSU": BaseUracilLike,   // pseudouridine
	"5MU": BaseThymineLike,  // ribothymidine
	"BRU": BaseUracilLike,   // 5-bromouridine
	"I":   BaseGuanineLike,  // inosine, pairs like guanine
	"DI":  BaseGuanineLike,  // deoxyinosine
	"H2U": BaseUracilLike,   // dihydrouridine
}

// BaseKindOf returns the BaseKind for a residue's (auth) component name,
// or BaseUnknown if the name is not a recognised nucleotide.
func BaseKindOf(compID string) BaseKind {
	return nucleotideRegistry[compID]
}

// IsNucleotide reports whether compID names a recognised nucleotide
// residue.
func IsNucleotide(compID string) bool {
	_, ok := nucleotideRegistry[compID]
	return ok
}
