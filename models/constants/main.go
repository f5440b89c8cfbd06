package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout Hemotype and it's
	associated services.
*/
type Zygosity int

// AlleleState tags the named candidate collections a blood group
// carries while being pruned (raw universe, diploid pairs, co-existing
// pairs, allele-level filter pool)
type AlleleState string

var VcfHeaders = []string{"chrom", "pos", "id", "ref", "alt", "qual", "filter", "info", "format"}
