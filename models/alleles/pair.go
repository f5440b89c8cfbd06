package alleles

import "fmt"

// Pair is one diploid genotype hypothesis: two alleles, unordered.
// Construction normalizes the order (by genotype label) so that
// equality and ledger bookkeeping do not depend on insertion order.
type Pair struct {
	Allele1 *Allele
	Allele2 *Allele
}

func NewPair(a1 *Allele, a2 *Allele) Pair {
	if a1.Genotype() > a2.Genotype() {
		a1, a2 = a2, a1
	}
	return Pair{Allele1: a1, Allele2: a2}
}

func (p Pair) Alleles() []*Allele {
	return []*Allele{p.Allele1, p.Allele2}
}

func (p Pair) ContainsReference() bool {
	return p.Allele1.Reference() || p.Allele2.Reference()
}

func (p Pair) AllReference() bool {
	return p.Allele1.Reference() && p.Allele2.Reference()
}

func (p Pair) SameAllele() bool {
	return p.Allele1.Equal(p.Allele2)
}

// Equal treats pairs as unordered
func (p Pair) Equal(other Pair) bool {
	return (p.Allele1.Equal(other.Allele1) && p.Allele2.Equal(other.Allele2)) ||
		(p.Allele1.Equal(other.Allele2) && p.Allele2.Equal(other.Allele1))
}

func (p Pair) Has(allele *Allele) bool {
	return p.Allele1.Equal(allele) || p.Allele2.Equal(allele)
}

// WeightGeno is the pair's summed evidentiary weight
func (p Pair) WeightGeno() int {
	return p.Allele1.WeightGeno() + p.Allele2.WeightGeno()
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Allele1.Genotype(), p.Allele2.Genotype())
}
