package phase

import "strings"

// Phase strings as they appear in a VCF GT field, plus the sentinels
// the pruning engine relies on. Two heterozygous variants are only
// comparable when they share a phase set and both carry ordered phase.
const (
	OrderedLeft  = "1|0"
	OrderedRight = "0|1"
	UnorderedAlt = "0/1"
	UnorderedRef = "1/0"
	Homozygous   = "1/1"
	Hemizygous   = "1"

	// phase-set placeholder for unphased or homozygous calls
	NoPhaseSet = "."

	Unknown = "unknown"
)

// Ordered reports whether a phase string pins the variant to one
// physical chromosome copy
func Ordered(phaseString string) bool {
	return strings.Contains(phaseString, "|")
}

// Ambiguous reports whether a phase string carries no usable side
// information (unordered heterozygous calls)
func Ambiguous(phaseString string) bool {
	return phaseString == UnorderedAlt || phaseString == UnorderedRef
}
