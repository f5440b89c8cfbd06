package alleles

import (
	"fmt"
	"time"

	"hemotype/api/models/constants"
	alleleState "hemotype/api/models/constants/allele-state"
	"hemotype/api/models/evidence"
)

// BloodGroup is the per-(sample, gene) candidate set being pruned:
// the raw allele universe, the diploid pair hypotheses (normal and,
// for the one co-existing-capable gene, co-existing), the allele-level
// filter pool, the sample's variant evidence, and the removal ledger
// every filter writes its evictions into.
type BloodGroup struct {
	Type       string
	Sample     string
	CoExisting bool

	Evidence *evidence.VariantEvidence

	raw   []*Allele
	filt  []*Allele
	pairs map[constants.AlleleState][]Pair

	removedPairs   map[string][]Pair
	removedAlleles map[string][]*Allele
}

func NewBloodGroup(geneType string, sample string, coExisting bool, ev *evidence.VariantEvidence) *BloodGroup {
	return &BloodGroup{
		Type:           geneType,
		Sample:         sample,
		CoExisting:     coExisting,
		Evidence:       ev,
		pairs:          map[constants.AlleleState][]Pair{},
		removedPairs:   map[string][]Pair{},
		removedAlleles: map[string][]*Allele{},
	}
}

func (bg *BloodGroup) SetRaw(rawAlleles []*Allele) {
	bg.raw = append([]*Allele{}, rawAlleles...)
	bg.filt = append([]*Allele{}, rawAlleles...)
}

func (bg *BloodGroup) Raw() []*Allele  { return bg.raw }
func (bg *BloodGroup) Filt() []*Allele { return bg.filt }

func (bg *BloodGroup) SetPairs(state constants.AlleleState, pairs []Pair) {
	bg.pairs[state] = append([]Pair{}, pairs...)
}

func (bg *BloodGroup) Pairs(state constants.AlleleState) []Pair {
	return bg.pairs[state]
}

// HasState reports whether a pair-level state exists and is worth
// processing. Co-existing pairs are only ever processed for the gene
// whose biology allows more than two alleles to co-express.
func (bg *BloodGroup) HasState(state constants.AlleleState) bool {
	if state == alleleState.Co && !bg.CoExisting {
		return false
	}
	return len(bg.pairs[state]) > 0
}

// AddPair appends a pair to a state without going through the ledger
// (used by the reference-pair fallback)
func (bg *BloodGroup) AddPair(state constants.AlleleState, pair Pair) {
	bg.pairs[state] = append(bg.pairs[state], pair)
}

// RemovePairs evicts the given pairs from a state and records them in
// the ledger under the evicting filter's name. Draining a state
// entirely is an anomaly worth surfacing, but not a crash.
func (bg *BloodGroup) RemovePairs(toRemove []Pair, filterName string, state constants.AlleleState) {
	if len(toRemove) == 0 {
		return
	}

	var kept []Pair
	for _, pair := range bg.pairs[state] {
		if pairInList(pair, toRemove) {
			bg.removedPairs[filterName] = append(bg.removedPairs[filterName], pair)
		} else {
			kept = append(kept, pair)
		}
	}
	bg.pairs[state] = kept

	if len(kept) == 0 {
		fmt.Printf("[%s] - WARNING all pairs removed!: %s %s %s\n", time.Now(), bg.Sample, bg.Type, filterName)
	}
}

// RemoveAlleles evicts alleles from the allele-level filter pool
func (bg *BloodGroup) RemoveAlleles(toRemove []*Allele, filterName string) {
	if len(toRemove) == 0 {
		return
	}

	var kept []*Allele
	for _, allele := range bg.filt {
		if alleleInList(allele, toRemove) {
			bg.removedAlleles[filterName] = append(bg.removedAlleles[filterName], allele)
		} else {
			kept = append(kept, allele)
		}
	}
	bg.filt = kept
}

// RemovedPairs returns the ledger entry a filter wrote, newest last
func (bg *BloodGroup) RemovedPairs(filterName string) []Pair {
	return bg.removedPairs[filterName]
}

func (bg *BloodGroup) RemovedAlleles(filterName string) []*Allele {
	return bg.removedAlleles[filterName]
}

// LedgerFilterNames lists every filter that removed something here
func (bg *BloodGroup) LedgerFilterNames() []string {
	var names []string
	for name := range bg.removedPairs {
		names = append(names, name)
	}
	for name := range bg.removedAlleles {
		if _, alreadyListed := bg.removedPairs[name]; !alreadyListed {
			names = append(names, name)
		}
	}
	return names
}

func pairInList(pair Pair, list []Pair) bool {
	for _, candidate := range list {
		if pair.Equal(candidate) {
			return true
		}
	}
	return false
}

func alleleInList(allele *Allele, list []*Allele) bool {
	for _, candidate := range list {
		if allele.Equal(candidate) {
			return true
		}
	}
	return false
}
