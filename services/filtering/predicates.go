package filtering

import (
	"hemotype/api/models/alleles"
	"hemotype/api/models/constants"
	phase "hemotype/api/models/constants/phase"
	z "hemotype/api/models/constants/zygosity"
	"hemotype/api/models/evidence"
)

// FlattenAlleles collects the distinct alleles appearing across a set
// of pair hypotheses
func FlattenAlleles(pairs []alleles.Pair) []*alleles.Allele {
	var flattened []*alleles.Allele
	for _, pair := range pairs {
		for _, allele := range pair.Alleles() {
			if !containsAllele(flattened, allele) {
				flattened = append(flattened, allele)
			}
		}
	}
	return flattened
}

// AllHomozygous: every defining variant of the allele was called HOM.
// Such alleles sit on both chromosome copies, so phase reasoning
// never applies to them.
func AllHomozygous(ev *evidence.VariantEvidence, allele *alleles.Allele) bool {
	for _, variant := range allele.DefiningVariants() {
		zyg, _ := ev.Zygosity(variant)
		if zyg != z.Homozygous {
			return false
		}
	}
	return true
}

// SamePhaseSet: among the allele's defining variants whose phase-set
// differs from excluding, all share exactly one phase-set id.
// Vacuously true when no qualifying variants remain (fully
// homozygous / unphaseable alleles).
func SamePhaseSet(ev *evidence.VariantEvidence, allele *alleles.Allele, excluding string) bool {
	return len(distinctValues(ev.PhaseSet, allele, excluding)) <= 1
}

// PhaseValues: the distinct phase strings among the allele's
// non-ambiguous (ordered or hemizygous) defining variants. Unordered
// het calls carry no side information and are excluded.
func PhaseValues(ev *evidence.VariantEvidence, allele *alleles.Allele) map[string]struct{} {
	values := map[string]struct{}{}
	for _, variant := range allele.DefiningVariants() {
		phaseString := ev.Phase(variant)
		if phase.Ambiguous(phaseString) {
			continue
		}
		values[phaseString] = struct{}{}
	}
	return values
}

// PhaseResolved: the allele's comparable variants all sit on exactly
// one known copy
func PhaseResolved(ev *evidence.VariantEvidence, allele *alleles.Allele) bool {
	values := PhaseValues(ev, allele)
	if len(values) != 1 {
		return false
	}
	_, unknown := values[phase.Unknown]
	_, missing := values[""]
	return !unknown && !missing
}

// FindUnphased flags alleles that are internally self-contradictory:
// two HET defining variants inside one phased block that disagree on
// which copy they sit on. Such an allele would have to span both
// chromosome copies at once.
func FindUnphased(ev *evidence.VariantEvidence, candidates []*alleles.Allele) []*alleles.Allele {
	var flagged []*alleles.Allele
	for _, allele := range candidates {
		blockPhases := map[string]map[string]struct{}{}
		for _, variant := range allele.DefiningVariants() {
			if !ev.IsHet(variant) {
				continue
			}
			phaseSet := ev.PhaseSet(variant)
			if phaseSet == "" || phaseSet == phase.NoPhaseSet {
				continue
			}
			phaseString := ev.Phase(variant)
			if !phase.Ordered(phaseString) {
				continue
			}
			if blockPhases[phaseSet] == nil {
				blockPhases[phaseSet] = map[string]struct{}{}
			}
			blockPhases[phaseSet][phaseString] = struct{}{}
		}
		for _, phasesInBlock := range blockPhases {
			if len(phasesInBlock) > 1 {
				flagged = append(flagged, allele)
				break
			}
		}
	}
	return flagged
}

// phaseUniform: the allele's non-homozygous phase strings collapse to
// exactly one value. Strict (an empty qualifying set fails): a fully
// homozygous allele must not land in a phase bucket.
func phaseUniform(ev *evidence.VariantEvidence, allele *alleles.Allele) bool {
	return len(distinctValues(ev.Phase, allele, phase.Homozygous)) == 1
}

// phaseSetUniform: strict single phase-set id, "." excluded
func phaseSetUniform(ev *evidence.VariantEvidence, allele *alleles.Allele) bool {
	return len(distinctValues(ev.PhaseSet, allele, phase.NoPhaseSet)) == 1
}

// phaseSetsKnown mirrors the relaxed per-allele gate used by the
// hom-sidedness rules: fully homozygous alleles (all ".") pass, and
// otherwise the variants must fall into exactly one numbered block.
func phaseSetsKnown(ev *evidence.VariantEvidence, allele *alleles.Allele) bool {
	numbered := map[string]struct{}{}
	allPlaceholder := true
	for _, variant := range allele.DefiningVariants() {
		phaseSet := ev.PhaseSet(variant)
		if phaseSet != phase.NoPhaseSet {
			allPlaceholder = false
		}
		if isNumeric(phaseSet) {
			numbered[phaseSet] = struct{}{}
		}
	}
	if allPlaceholder {
		return true
	}
	return len(numbered) == 1
}

// allPhaseStrings: every phase string of the allele's defining
// variants, homozygous sentinels included
func allPhaseStrings(ev *evidence.VariantEvidence, allele *alleles.Allele) map[string]struct{} {
	values := map[string]struct{}{}
	for _, variant := range allele.DefiningVariants() {
		values[ev.Phase(variant)] = struct{}{}
	}
	return values
}

// possibleToUsePhase: both alleles of a pair are fully
// phase-resolved: one numbered block each and a single non-homozygous
// phase value each. Deliberately symmetric in the two alleles.
func possibleToUsePhase(ev *evidence.VariantEvidence, pair alleles.Pair) bool {
	return phaseSetUniform(ev, pair.Allele1) && phaseUniform(ev, pair.Allele1) &&
		phaseSetUniform(ev, pair.Allele2) && phaseUniform(ev, pair.Allele2)
}

func distinctValues(get func(string) string, allele *alleles.Allele, excluding string) map[string]struct{} {
	values := map[string]struct{}{}
	for _, variant := range allele.DefiningVariants() {
		value := get(variant)
		if value != excluding {
			values[value] = struct{}{}
		}
	}
	return values
}

func setsEqual(a map[string]struct{}, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for value := range a {
		if _, ok := b[value]; !ok {
			return false
		}
	}
	return true
}

func setIsOnly(values map[string]struct{}, value string) bool {
	if len(values) != 1 {
		return false
	}
	_, ok := values[value]
	return ok
}

func isNumeric(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func containsAllele(list []*alleles.Allele, allele *alleles.Allele) bool {
	for _, candidate := range list {
		if candidate.Equal(allele) {
			return true
		}
	}
	return false
}

func containsPair(list []alleles.Pair, pair alleles.Pair) bool {
	for _, candidate := range list {
		if candidate.Equal(pair) {
			return true
		}
	}
	return false
}

func zygositySet(ev *evidence.VariantEvidence, allele *alleles.Allele) map[constants.Zygosity]struct{} {
	values := map[constants.Zygosity]struct{}{}
	for _, variant := range allele.DefiningVariants() {
		zyg, _ := ev.Zygosity(variant)
		values[zyg] = struct{}{}
	}
	return values
}

func phaseSetStrings(ev *evidence.VariantEvidence, allele *alleles.Allele) map[string]struct{} {
	values := map[string]struct{}{}
	for _, variant := range allele.DefiningVariants() {
		values[ev.PhaseSet(variant)] = struct{}{}
	}
	return values
}
