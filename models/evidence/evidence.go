package evidence

import (
	"sort"

	"hemotype/api/models/constants"
	z "hemotype/api/models/constants/zygosity"
)

// VariantEvidence is the read-only, per-sample view of what the VCF
// said about one blood group's loci: zygosity, phase string and phase
// set per observed variant. It is built once per (sample, gene) and
// never mutated during filtering; filters receive accessors only.
type VariantEvidence struct {
	zygosities map[string]constants.Zygosity
	phases     map[string]string
	phaseSets  map[string]string
}

func New(zygosities map[string]constants.Zygosity, phases map[string]string, phaseSets map[string]string) *VariantEvidence {
	ve := &VariantEvidence{
		zygosities: make(map[string]constants.Zygosity, len(zygosities)),
		phases:     make(map[string]string, len(phases)),
		phaseSets:  make(map[string]string, len(phaseSets)),
	}
	for variant, zyg := range zygosities {
		ve.zygosities[variant] = zyg
	}
	for variant, phase := range phases {
		ve.phases[variant] = phase
	}
	for variant, phaseSet := range phaseSets {
		ve.phaseSets[variant] = phaseSet
	}
	return ve
}

// Observed reports whether the sample's variant pool contains the
// given variant identifier at all
func (ve *VariantEvidence) Observed(variant string) bool {
	_, ok := ve.zygosities[variant]
	return ok
}

func (ve *VariantEvidence) Zygosity(variant string) (constants.Zygosity, bool) {
	zyg, ok := ve.zygosities[variant]
	return zyg, ok
}

func (ve *VariantEvidence) IsHet(variant string) bool {
	return ve.zygosities[variant] == z.Heterozygous
}

func (ve *VariantEvidence) IsHom(variant string) bool {
	return ve.zygosities[variant] == z.Homozygous
}

// Phase returns the phase string for a variant, or "" when the
// variant is absent from the pool
func (ve *VariantEvidence) Phase(variant string) string {
	return ve.phases[variant]
}

// PhaseSet returns the caller-assigned phased-block id for a variant,
// or "" when the variant is absent from the pool
func (ve *VariantEvidence) PhaseSet(variant string) string {
	return ve.phaseSets[variant]
}

// Variants lists the observed variant identifiers in stable order
func (ve *VariantEvidence) Variants() []string {
	variants := make([]string, 0, len(ve.zygosities))
	for variant := range ve.zygosities {
		variants = append(variants, variant)
	}
	sort.Strings(variants)
	return variants
}

func (ve *VariantEvidence) Size() int {
	return len(ve.zygosities)
}
