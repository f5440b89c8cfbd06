package filtering

import (
	"fmt"
	"sync"
	"time"

	"hemotype/api/models/alleles"
	"hemotype/api/models/constants"
	alleleState "hemotype/api/models/constants/allele-state"

	"golang.org/x/sync/errgroup"
)

// InconsistencyError reports a state no filter should ever be able to
// produce: an upstream guarantee was violated, so the gene's result is
// untrustworthy and reported as unresolvable instead of half-pruned.
type InconsistencyError struct {
	Gene   string
	Filter string
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent candidate state in %s at %s: %s", e.Gene, e.Filter, e.Reason)
}

// Filter is one ordered step of the pruning pipeline
type Filter struct {
	Name  string
	apply func(bg *alleles.BloodGroup, phased bool) error
}

// Pipeline returns the twelve pruning steps in their fixed execution
// order. The order is load-bearing: the unphased-allele sweep must run
// before pair-level rules, the phase-based pair eliminations before
// the weight tiebreak, and the reference cleanups last.
func Pipeline(referenceAlleles map[string]*alleles.Allele) []Filter {
	return []Filter{
		{NameRemoveUnphased, RemoveUnphasedAlleles},
		{NameSameSideHets, FilterSameSideHets},
		{NameHomInPhasedPairs, FilterHomInPhasedPairs},
		{NameHomSidedness, FilterHomSidedness},
		{NameHomSelfPairs, FilterHomSelfPairs},
		{NamePairsByPhase, func(bg *alleles.BloodGroup, phased bool) error {
			return FilterPairsByPhase(bg, phased, referenceAlleles)
		}},
		{NameSubsumedByPhase, FilterSubsumedByPhase},
		{NameRefWhenHetsPhased, FilterReferenceWhenHetsPhased},
		{NameLowWeightHom, FilterLowWeightHom},
		{NameMissingDefining, FilterMissingDefiningVariant},
		{NameUnphasedReference, FilterUnphasedReference},
		{NameHomRefWithHetSite, FilterHomRefWithHetSite},
	}
}

// Run executes the full pipeline over one gene's candidate set.
// With phased=false every step is a no-op and the candidate set is
// returned untouched.
func Run(bg *alleles.BloodGroup, phased bool, referenceAlleles map[string]*alleles.Allele) error {
	for _, filter := range Pipeline(referenceAlleles) {
		if err := filter.apply(bg, phased); err != nil {
			return err
		}
	}
	return nil
}

// RunAcrossGenes prunes many genes' candidate sets in parallel, at
// most concurrencyLevel at a time. Genes are independent, so one
// gene's inconsistency never aborts the others; the per-gene errors
// come back keyed by gene for the caller to report.
func RunAcrossGenes(bloodGroups map[string]*alleles.BloodGroup, phased bool, referenceAlleles map[string]*alleles.Allele, concurrencyLevel int) map[string]error {
	if concurrencyLevel < 1 {
		concurrencyLevel = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrencyLevel)

	var mux sync.Mutex
	failures := map[string]error{}

	for _, bloodGroup := range bloodGroups {
		bg := bloodGroup
		g.Go(func() error {
			if err := Run(bg, phased, referenceAlleles); err != nil {
				fmt.Printf("[%s] - Filtering failed for %s %s : %s\n", time.Now(), bg.Sample, bg.Type, err)
				mux.Lock()
				failures[bg.Type] = err
				mux.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return failures
}

// drainGuard rejects an eviction set that would empty a state: every
// filter except the phase-pair rule (which substitutes reference
// fallbacks instead) treats a total wipe-out as an upstream
// inconsistency rather than a result.
func drainGuard(bg *alleles.BloodGroup, state constants.AlleleState, filterName string, toRemove []alleles.Pair) error {
	if len(toRemove) == 0 {
		return nil
	}
	if state == alleleState.Co && !bg.CoExisting {
		return nil
	}
	if len(toRemove) >= len(bg.Pairs(state)) {
		return &InconsistencyError{Gene: bg.Type, Filter: filterName, Reason: "every remaining pair flagged for removal"}
	}
	return nil
}
