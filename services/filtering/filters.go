package filtering

import (
	"sort"
	"strings"

	"hemotype/api/models/alleles"
	"hemotype/api/models/constants"
	alleleState "hemotype/api/models/constants/allele-state"
	phase "hemotype/api/models/constants/phase"
	z "hemotype/api/models/constants/zygosity"
)

// Ledger keys, one per filter. FilterUnphasedReference reads the
// entry written under NameRemoveUnphased, so these are part of the
// engine's contract, not just log labels.
const (
	NameRemoveUnphased    = "remove_unphased"
	NameSameSideHets      = "het_vars_on_same_side"
	NameHomInPhasedPairs  = "hom_allele_in_opposed_phased_pair"
	NameHomSidedness      = "hom_cant_be_on_one_side"
	NameHomSelfPairs      = "all_hom_self_pair_subsumed"
	NamePairsByPhase      = "pairs_by_phase"
	NameSubsumedByPhase   = "allele_subsumed_by_other_phased"
	NameRefWhenHetsPhased = "rm_ref_if_het_pair_phased"
	NameLowWeightHom      = "low_weight_hom"
	NameMissingDefining   = "no_defining_variant"
	NameUnphasedReference = "ref_not_phased"
	NameHomRefWithHetSite = "hom_ref_with_het_site"
)

// The ABO locus carries an insertion that reference definitions list
// on both assemblies; it is implicitly covered even when the call set
// never mentions it, so the missing-variant rule must not fire on it.
var aboIndelExceptions = map[string]struct{}{
	"9:133257521_T_TC": {},
	"136132908_T_TC":   {},
}

var pairStates = []constants.AlleleState{alleleState.Normal, alleleState.Co}

// RemoveUnphasedAlleles drops self-contradictory alleles from the
// allele-level pool: an allele whose HET defining variants disagree
// in ordered phase within one phased block cannot exist on a single
// chromosome copy.
func RemoveUnphasedAlleles(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	toRemove := FindUnphased(bg.Evidence, bg.Filt())
	bg.RemoveAlleles(toRemove, NameRemoveUnphased)
	return nil
}

// FilterSameSideHets rejects pairs whose two alleles are pinned to
// the same physical copy: a HET defining variant of one allele
// sharing identical ordered phase with a HET defining variant of the
// other means the alleles are in cis and cannot be a diploid pair.
func FilterSameSideHets(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	for _, state := range pairStates {
		if !bg.HasState(state) {
			continue
		}
		var toRemove []alleles.Pair
		for _, pair := range bg.Pairs(state) {
			if sameSideHets(bg, pair) && !containsPair(toRemove, pair) {
				toRemove = append(toRemove, pair)
			}
		}
		if err := drainGuard(bg, state, NameSameSideHets, toRemove); err != nil {
			return err
		}
		bg.RemovePairs(toRemove, NameSameSideHets, state)
	}
	return nil
}

func sameSideHets(bg *alleles.BloodGroup, pair alleles.Pair) bool {
	for _, variant1 := range pair.Allele1.DefiningVariants() {
		if !bg.Evidence.IsHet(variant1) {
			continue
		}
		phase1 := bg.Evidence.Phase(variant1)
		for _, variant2 := range pair.Allele2.DefiningVariants() {
			if !bg.Evidence.IsHet(variant2) {
				continue
			}
			if phase1 == bg.Evidence.Phase(variant2) && phase.Ordered(phase1) {
				return true
			}
		}
	}
	return false
}

// FilterHomInPhasedPairs: when a pair exists whose two alleles are
// each resolved to a single (and different) copy, a fully homozygous
// allele subsumed by both of them would have to be present on both
// copies at once. Pairs carrying such an allele are impossible.
func FilterHomInPhasedPairs(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	for _, state := range pairStates {
		if !bg.HasState(state) {
			continue
		}

		var resolvedPairs []alleles.Pair
		for _, pair := range bg.Pairs(state) {
			if AllHomozygous(bg.Evidence, pair.Allele1) || AllHomozygous(bg.Evidence, pair.Allele2) {
				continue
			}
			if !phaseSetsKnown(bg.Evidence, pair.Allele1) || !phaseSetsKnown(bg.Evidence, pair.Allele2) {
				continue
			}
			phases1 := PhaseValues(bg.Evidence, pair.Allele1)
			phases2 := PhaseValues(bg.Evidence, pair.Allele2)
			if unusablePhases(phases1) || unusablePhases(phases2) {
				continue
			}
			if len(phases1) == 1 && len(phases2) == 1 {
				resolvedPairs = append(resolvedPairs, pair)
			}
		}

		var toRemove []alleles.Pair
		for _, resolved := range resolvedPairs {
			flattened := FlattenAlleles([]alleles.Pair{resolved})
			for _, pair := range bg.Pairs(state) {
				for _, allele := range pair.Alleles() {
					if !AllHomozygous(bg.Evidence, allele) {
						continue
					}
					if inAll(allele, flattened) && !containsPair(toRemove, pair) {
						toRemove = append(toRemove, pair)
					}
				}
			}
		}
		if err := drainGuard(bg, state, NameHomInPhasedPairs, toRemove); err != nil {
			return err
		}
		bg.RemovePairs(toRemove, NameHomInPhasedPairs, state)
	}
	return nil
}

// FilterHomSidedness: across the fully phased pairs, a homozygous
// allele's partner fixes which copy the rest of the definition sits
// on. Another phased allele that subsumes the homozygous one but
// disagrees with that partner's copy assignment invalidates the pair.
func FilterHomSidedness(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	for _, state := range pairStates {
		if !bg.HasState(state) {
			continue
		}

		var fullyPhased []alleles.Pair
		for _, pair := range bg.Pairs(state) {
			if !phaseSetsKnown(bg.Evidence, pair.Allele1) || !phaseSetsKnown(bg.Evidence, pair.Allele2) {
				continue
			}
			phases1 := PhaseValues(bg.Evidence, pair.Allele1)
			phases2 := PhaseValues(bg.Evidence, pair.Allele2)
			if unusablePhases(phases1) || unusablePhases(phases2) {
				continue
			}
			fullyPhased = append(fullyPhased, pair)
		}
		if len(fullyPhased) == 0 {
			continue
		}

		flattened := FlattenAlleles(fullyPhased)
		var toRemove []alleles.Pair
		for _, pair := range fullyPhased {
			hom1 := AllHomozygous(bg.Evidence, pair.Allele1)
			hom2 := AllHomozygous(bg.Evidence, pair.Allele2)
			if !hom1 && !hom2 {
				continue
			}
			// allele1 takes the homozygous role when both qualify
			homAllele, partner := pair.Allele1, pair.Allele2
			if hom2 && !hom1 {
				homAllele, partner = pair.Allele2, pair.Allele1
			}
			partnerPhases := PhaseValues(bg.Evidence, partner)
			for _, flat := range flattened {
				if pair.Has(flat) {
					continue
				}
				if !setsEqual(PhaseValues(bg.Evidence, flat), partnerPhases) && homAllele.In(flat) {
					if !containsPair(toRemove, pair) {
						toRemove = append(toRemove, pair)
					}
					break
				}
			}
		}
		if err := drainGuard(bg, state, NameHomSidedness, toRemove); err != nil {
			return err
		}
		bg.RemovePairs(toRemove, NameHomSidedness, state)
	}
	return nil
}

// FilterHomSelfPairs collapses redundant self-pairs: a pair of two
// identical fully homozygous alleles adds nothing once some larger
// allele in the candidate set subsumes it.
func FilterHomSelfPairs(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	for _, state := range pairStates {
		if !bg.HasState(state) || len(bg.Pairs(state)) < 2 {
			continue
		}
		flattened := FlattenAlleles(bg.Pairs(state))
		var toRemove []alleles.Pair
		for _, pair := range bg.Pairs(state) {
			if !pair.SameAllele() || !AllHomozygous(bg.Evidence, pair.Allele1) {
				continue
			}
			for _, flat := range flattened {
				if pair.Allele1.In(flat) {
					toRemove = append(toRemove, pair)
					break
				}
			}
		}
		if err := drainGuard(bg, state, NameHomSelfPairs, toRemove); err != nil {
			return err
		}
		bg.RemovePairs(toRemove, NameHomSelfPairs, state)
	}
	return nil
}

// FilterPairsByPhase rejects reference-free pairs whose alleles sit
// in one phased block with identical phase: both alleles on the same
// strand cannot be inherited together. If that would drain the gene,
// every removed pair's alleles re-enter partnered with the reference
// allele, so phasing alone never empties a candidate set.
func FilterPairsByPhase(bg *alleles.BloodGroup, phased bool, referenceAlleles map[string]*alleles.Allele) error {
	if !phased {
		return nil
	}
	normal := bg.Pairs(alleleState.Normal)
	var toRemove []alleles.Pair
	for _, pair := range normal {
		if pair.ContainsReference() {
			continue
		}

		phaseSetUnion := phaseSetStrings(bg.Evidence, pair.Allele1)
		for value := range phaseSetStrings(bg.Evidence, pair.Allele2) {
			phaseSetUnion[value] = struct{}{}
		}
		if len(phaseSetUnion) != 1 {
			continue // can't use phasing info
		}

		zygo1 := zygositySet(bg.Evidence, pair.Allele1)
		zygo2 := zygositySet(bg.Evidence, pair.Allele2)
		if allHomSet(zygo1) && allHomSet(zygo2) {
			continue
		}

		if setsEqual(allPhaseStrings(bg.Evidence, pair.Allele1), allPhaseStrings(bg.Evidence, pair.Allele2)) {
			toRemove = append(toRemove, pair)
		}
	}

	if len(toRemove) == len(normal) && len(toRemove) > 0 {
		reference, ok := referenceAlleles[bg.Type]
		if !ok {
			return &InconsistencyError{Gene: bg.Type, Filter: NamePairsByPhase, Reason: "no reference allele registered for fallback"}
		}
		for _, pair := range toRemove {
			bg.AddPair(alleleState.Normal, alleles.NewPair(reference, pair.Allele1))
			bg.AddPair(alleleState.Normal, alleles.NewPair(reference, pair.Allele2))
		}
	}
	bg.RemovePairs(toRemove, NamePairsByPhase, alleleState.Normal)
	return nil
}

// FilterSubsumedByPhase: inside one phased block, alleles resolved to
// the same copy are ordered by definition size; any allele contained
// in a larger same-copy allele is an impossible leftover of candidate
// generation, and every pair carrying it goes.
func FilterSubsumedByPhase(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	for _, state := range pairStates {
		if !bg.HasState(state) {
			continue
		}
		if len(bg.Pairs(state)) < 2 {
			return nil
		}

		var sameBlock []*alleles.Allele
		for _, allele := range FlattenAlleles(bg.Pairs(state)) {
			if phaseSetUniform(bg.Evidence, allele) && phaseUniform(bg.Evidence, allele) {
				sameBlock = append(sameBlock, allele)
			}
		}
		sort.SliceStable(sameBlock, func(i, j int) bool {
			if sameBlock[i].VariantCount() != sameBlock[j].VariantCount() {
				return sameBlock[i].VariantCount() > sameBlock[j].VariantCount()
			}
			return sameBlock[i].Genotype() < sameBlock[j].Genotype()
		})

		buckets := map[string][]*alleles.Allele{}
		for _, allele := range sameBlock {
			values := distinctValues(bg.Evidence.Phase, allele, phase.Homozygous)
			if len(values) != 1 {
				return &InconsistencyError{Gene: bg.Type, Filter: NameSubsumedByPhase, Reason: "phase-uniform allele with multiple phases: " + allele.Genotype()}
			}
			for value := range values {
				switch value {
				case phase.OrderedLeft, phase.OrderedRight, phase.Hemizygous:
					buckets[value] = append(buckets[value], allele)
				default:
					// unordered or unknown phase carries no side information
				}
			}
		}

		var allelesToRemove []*alleles.Allele
		for _, bucket := range buckets {
			allelesToRemove = append(allelesToRemove, subsumedWithin(bucket)...)
		}

		var toRemove []alleles.Pair
		for _, pair := range bg.Pairs(state) {
			if containsAllele(allelesToRemove, pair.Allele1) || containsAllele(allelesToRemove, pair.Allele2) {
				toRemove = append(toRemove, pair)
			}
		}
		if err := drainGuard(bg, state, NameSubsumedByPhase, toRemove); err != nil {
			return err
		}
		bg.RemovePairs(toRemove, NameSubsumedByPhase, state)
	}
	return nil
}

// subsumedWithin flags every allele of the bucket that some other
// bucket member strictly subsumes
func subsumedWithin(bucket []*alleles.Allele) []*alleles.Allele {
	var flagged []*alleles.Allele
	for _, allele := range bucket {
		for _, other := range bucket {
			if allele.In(other) && !containsAllele(flagged, allele) {
				flagged = append(flagged, allele)
			}
		}
	}
	return flagged
}

// FilterReferenceWhenHetsPhased: a reference-paired hypothesis only
// exists as a fallback for unresolved HET calls. Once a reference-free
// pair with both alleles fully phase-resolved (necessarily on
// opposite copies) exists, the fallbacks are superseded.
func FilterReferenceWhenHetsPhased(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	var toRemove []alleles.Pair
	phasedRefFreePairExists := false
	for _, pair := range bg.Pairs(alleleState.Normal) {
		if pair.ContainsReference() {
			toRemove = append(toRemove, pair)
			continue
		}
		if possibleToUsePhase(bg.Evidence, pair) {
			phases1 := allPhaseStrings(bg.Evidence, pair.Allele1)
			phases2 := allPhaseStrings(bg.Evidence, pair.Allele2)
			if setsEqual(phases1, phases2) {
				return &InconsistencyError{Gene: bg.Type, Filter: NameRefWhenHetsPhased, Reason: "phase-resolved pair on a single copy survived earlier pruning: " + pair.String()}
			}
			phasedRefFreePairExists = true
		}
	}
	if phasedRefFreePairExists {
		bg.RemovePairs(toRemove, NameRefWhenHetsPhased, alleleState.Normal)
	}
	return nil
}

// FilterLowWeightHom breaks ties between competing fully
// phase-resolved pairs by summed genotype weight, keeping only the
// minimum-weight pair. The low weight wins: weightGeno ranks allele
// definitions by priority, smaller meaning higher-priority.
func FilterLowWeightHom(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	normal := bg.Pairs(alleleState.Normal)

	var eligible []alleles.Pair
	for _, pair := range normal {
		if possibleToUsePhase(bg.Evidence, pair) {
			phases1 := allPhaseStrings(bg.Evidence, pair.Allele1)
			phases2 := allPhaseStrings(bg.Evidence, pair.Allele2)
			if setsEqual(phases1, phases2) {
				return &InconsistencyError{Gene: bg.Type, Filter: NameLowWeightHom, Reason: "phase-resolved pair on a single copy survived earlier pruning: " + pair.String()}
			}
			eligible = append(eligible, pair)
		}
	}
	if len(eligible) < 2 {
		return nil
	}

	weights := map[int]struct{}{}
	for _, pair := range eligible {
		weights[pair.WeightGeno()] = struct{}{}
	}
	if len(weights) == 1 {
		return nil
	}

	best := eligible[0]
	for _, pair := range eligible[1:] {
		if pair.WeightGeno() < best.WeightGeno() {
			best = pair
		}
	}

	var toRemove []alleles.Pair
	for _, pair := range normal {
		if !pair.Equal(best) {
			toRemove = append(toRemove, pair)
		}
	}
	bg.RemovePairs(toRemove, NameLowWeightHom, alleleState.Normal)
	return nil
}

// FilterMissingDefiningVariant: a reference allele whose definition
// names a variant the sample's pool never observed (because the
// position was called with a conflicting genotype) cannot be present.
func FilterMissingDefiningVariant(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	var toRemove []alleles.Pair
	for _, pair := range bg.Pairs(alleleState.Normal) {
		for _, allele := range pair.Alleles() {
			if !allele.Reference() {
				continue
			}
			if allImpliedReference(allele) {
				continue
			}
			for _, variant := range allele.DefiningVariants() {
				if _, exempt := aboIndelExceptions[variant]; exempt {
					continue
				}
				if !bg.Evidence.Observed(variant) {
					if !containsPair(toRemove, pair) {
						toRemove = append(toRemove, pair)
					}
					break
				}
			}
		}
	}
	if err := drainGuard(bg, alleleState.Normal, NameMissingDefining, toRemove); err != nil {
		return err
	}
	bg.RemovePairs(toRemove, NameMissingDefining, alleleState.Normal)
	return nil
}

// FilterUnphasedReference: pair generation re-adds reference alleles
// even when phasing already branded them self-contradictory; the
// ledger entry from the unphased-allele sweep is the source of truth
// and such references stay out.
func FilterUnphasedReference(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	flagged := bg.RemovedAlleles(NameRemoveUnphased)
	if len(flagged) == 0 {
		return nil
	}
	var toRemove []alleles.Pair
	for _, pair := range bg.Pairs(alleleState.Normal) {
		for _, allele := range pair.Alleles() {
			if allele.Reference() && containsAllele(flagged, allele) {
				if !containsPair(toRemove, pair) {
					toRemove = append(toRemove, pair)
				}
				break
			}
		}
	}
	if err := drainGuard(bg, alleleState.Normal, NameUnphasedReference, toRemove); err != nil {
		return err
	}
	bg.RemovePairs(toRemove, NameUnphasedReference, alleleState.Normal)
	return nil
}

// FilterHomRefWithHetSite: a homozygous-reference pair claims both
// copies are wild type, which any heterozygous call at one of its
// defining positions contradicts directly.
func FilterHomRefWithHetSite(bg *alleles.BloodGroup, phased bool) error {
	if !phased {
		return nil
	}
	var toRemove []alleles.Pair
	for _, pair := range bg.Pairs(alleleState.Normal) {
		if !pair.AllReference() {
			continue
		}
		for _, variant := range pair.Allele1.DefiningVariants() {
			if bg.Evidence.IsHet(variant) {
				toRemove = append(toRemove, pair)
				break
			}
		}
	}
	if err := drainGuard(bg, alleleState.Normal, NameHomRefWithHetSite, toRemove); err != nil {
		return err
	}
	bg.RemovePairs(toRemove, NameHomRefWithHetSite, alleleState.Normal)
	return nil
}

// inAll: the allele is strictly subsumed by every allele in the list
func inAll(allele *alleles.Allele, list []*alleles.Allele) bool {
	for _, other := range list {
		if !allele.In(other) {
			return false
		}
	}
	return len(list) > 0
}

// unusablePhases: the phase-value set carries no side information at
// all (only missing or unknown entries)
func unusablePhases(values map[string]struct{}) bool {
	return setIsOnly(values, "") || setIsOnly(values, phase.Unknown)
}

// allImpliedReference: the allele's definition holds only "."
// placeholder entries, so absence from the call set is expected, not
// evidence against it. Wild-type "pos_ref" entries are NOT exempt:
// the scan writes them into the pool whenever the lane position is
// covered, so a missing one means the position was called
// homozygous-alternate and the reference base is absent.
func allImpliedReference(allele *alleles.Allele) bool {
	for _, variant := range allele.DefiningVariants() {
		if !strings.HasSuffix(variant, ".") {
			return false
		}
	}
	return true
}

func allHomSet(zygosities map[constants.Zygosity]struct{}) bool {
	if len(zygosities) != 1 {
		return false
	}
	for zyg := range zygosities {
		if zyg != z.Homozygous {
			return false
		}
	}
	return true
}
