package alleles

import (
	"fmt"
	"sort"
	"strings"
)

// Allele is one named form of a blood-group gene: a genotype label
// plus the frozen set of variants that define it. The defining set is
// copied on construction and only handed out as sorted slices, so an
// Allele never changes after it is built.
type Allele struct {
	genotype         string
	definingVariants map[string]struct{}
	weightGeno       int
	reference        bool
	subType          string
}

func NewAllele(genotype string, definingVariants []string, weightGeno int, reference bool, subType string) *Allele {
	set := make(map[string]struct{}, len(definingVariants))
	for _, variant := range definingVariants {
		set[variant] = struct{}{}
	}
	return &Allele{
		genotype:         genotype,
		definingVariants: set,
		weightGeno:       weightGeno,
		reference:        reference,
		subType:          subType,
	}
}

func (a *Allele) Genotype() string { return a.genotype }
func (a *Allele) WeightGeno() int  { return a.weightGeno }
func (a *Allele) Reference() bool  { return a.reference }
func (a *Allele) SubType() string  { return a.subType }

func (a *Allele) Has(variant string) bool {
	_, ok := a.definingVariants[variant]
	return ok
}

func (a *Allele) VariantCount() int {
	return len(a.definingVariants)
}

// DefiningVariants returns the defining set as a sorted slice
func (a *Allele) DefiningVariants() []string {
	variants := make([]string, 0, len(a.definingVariants))
	for variant := range a.definingVariants {
		variants = append(variants, variant)
	}
	sort.Strings(variants)
	return variants
}

// Equal: same genotype label and same defining-variant set
func (a *Allele) Equal(other *Allele) bool {
	if a == nil || other == nil {
		return a == other
	}
	if a.genotype != other.genotype || len(a.definingVariants) != len(other.definingVariants) {
		return false
	}
	for variant := range a.definingVariants {
		if _, ok := other.definingVariants[variant]; !ok {
			return false
		}
	}
	return true
}

// Contained reports whether every defining variant of a is also a
// defining variant of other (plain subsumption, identity included)
func (a *Allele) Contained(other *Allele) bool {
	if len(a.definingVariants) > len(other.definingVariants) {
		return false
	}
	for variant := range a.definingVariants {
		if _, ok := other.definingVariants[variant]; !ok {
			return false
		}
	}
	return true
}

// In is the strict form of Contained: a is subsumed by a different
// allele. An allele is never "in" itself, otherwise every
// subsumption sweep would empty the candidate set.
func (a *Allele) In(other *Allele) bool {
	return !a.Equal(other) && a.Contained(other)
}

func (a *Allele) String() string {
	return fmt.Sprintf("%s{%s}", a.genotype, strings.Join(a.DefiningVariants(), ","))
}
