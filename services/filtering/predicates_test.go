package filtering

import (
	"testing"

	"hemotype/api/models/alleles"
	"hemotype/api/models/constants"
	z "hemotype/api/models/constants/zygosity"
	"hemotype/api/models/evidence"

	"github.com/stretchr/testify/assert"
)

type call struct {
	zygosity constants.Zygosity
	phase    string
	phaseSet string
}

func buildEvidence(calls map[string]call) *evidence.VariantEvidence {
	zygosities := map[string]constants.Zygosity{}
	phases := map[string]string{}
	phaseSets := map[string]string{}
	for variant, c := range calls {
		zygosities[variant] = c.zygosity
		phases[variant] = c.phase
		phaseSets[variant] = c.phaseSet
	}
	return evidence.New(zygosities, phases, phaseSets)
}

func makeAllele(genotype string, weight int, reference bool, variants ...string) *alleles.Allele {
	return alleles.NewAllele(genotype, variants, weight, reference, "")
}

func TestAllHomozygous(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Homozygous, "1/1", "."},
		"18:200_C_T": {z.Heterozygous, "1|0", "300"},
	})

	assert.True(t, AllHomozygous(ev, makeAllele("KEL*02.03", 1, false, "18:100_A_G")))
	assert.False(t, AllHomozygous(ev, makeAllele("KEL*02.04", 1, false, "18:100_A_G", "18:200_C_T")))
	assert.False(t, AllHomozygous(ev, makeAllele("KEL*02.05", 1, false, "18:999_G_A")))
}

func TestPhaseValuesExcludesUnorderedCalls(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Heterozygous, "1|0", "300"},
		"18:200_C_T": {z.Heterozygous, "0/1", "."},
		"18:300_G_A": {z.Heterozygous, "1/0", "."},
	})

	values := PhaseValues(ev, makeAllele("KEL*02.03", 1, false, "18:100_A_G", "18:200_C_T", "18:300_G_A"))

	assert.Len(t, values, 1)
	assert.Contains(t, values, "1|0")
}

func TestSamePhaseSetVacuouslyTrue(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Homozygous, "1/1", "."},
	})

	// every qualifying variant excluded -> nothing contradicts
	assert.True(t, SamePhaseSet(ev, makeAllele("KEL*02.03", 1, false, "18:100_A_G"), "."))
}

func TestSamePhaseSetAcrossBlocks(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Heterozygous, "1|0", "100"},
		"18:200_C_T": {z.Heterozygous, "1|0", "200"},
	})

	assert.False(t, SamePhaseSet(ev, makeAllele("KEL*02.04", 1, false, "18:100_A_G", "18:200_C_T"), "."))
}

func TestPhaseResolved(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Heterozygous, "1|0", "100"},
		"18:200_C_T": {z.Heterozygous, "0|1", "100"},
	})

	assert.True(t, PhaseResolved(ev, makeAllele("KEL*02.03", 1, false, "18:100_A_G")))
	assert.False(t, PhaseResolved(ev, makeAllele("KEL*02.04", 1, false, "18:100_A_G", "18:200_C_T")))
}

func TestFindUnphasedFlagsSelfContradictoryAlleles(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Heterozygous, "1|0", "100"},
		"18:200_C_T": {z.Heterozygous, "0|1", "100"},
		"18:300_G_A": {z.Heterozygous, "0|1", "200"},
	})

	split := makeAllele("KEL*02.04", 1, false, "18:100_A_G", "18:200_C_T")
	coherent := makeAllele("KEL*02.05", 1, false, "18:100_A_G")
	separateBlocks := makeAllele("KEL*02.06", 1, false, "18:100_A_G", "18:300_G_A")

	flagged := FindUnphased(ev, []*alleles.Allele{split, coherent, separateBlocks})

	assert.Len(t, flagged, 1)
	assert.True(t, flagged[0].Equal(split))
}

func TestPossibleToUsePhaseIsSymmetric(t *testing.T) {
	ev := buildEvidence(map[string]call{
		"18:100_A_G": {z.Heterozygous, "1|0", "100"},
		"18:200_C_T": {z.Heterozygous, "0|1", "100"},
		"18:300_G_A": {z.Heterozygous, "0/1", "."},
	})

	resolved := makeAllele("KEL*02.03", 1, false, "18:100_A_G")
	other := makeAllele("KEL*02.04", 1, false, "18:200_C_T")
	unresolved := makeAllele("KEL*02.05", 1, false, "18:300_G_A")

	assert.True(t, possibleToUsePhase(ev, alleles.NewPair(resolved, other)))
	assert.False(t, possibleToUsePhase(ev, alleles.NewPair(resolved, unresolved)))
	assert.False(t, possibleToUsePhase(ev, alleles.NewPair(unresolved, resolved)))
}

func TestAlleleContainmentIsStrict(t *testing.T) {
	small := makeAllele("KEL*02.03", 1, false, "18:100_A_G")
	big := makeAllele("KEL*02.04", 1, false, "18:100_A_G", "18:200_C_T")

	assert.True(t, small.In(big))
	assert.False(t, big.In(small))
	assert.False(t, small.In(small))
	assert.True(t, small.Contained(small))
}

func TestPairEqualityIsUnordered(t *testing.T) {
	a := makeAllele("KEL*02.03", 1, false, "18:100_A_G")
	b := makeAllele("KEL*02.04", 1, false, "18:200_C_T")

	assert.True(t, alleles.NewPair(a, b).Equal(alleles.NewPair(b, a)))
	assert.Equal(t, alleles.NewPair(a, b).String(), alleles.NewPair(b, a).String())
}

func TestFlattenAllelesDeduplicates(t *testing.T) {
	a := makeAllele("KEL*02.03", 1, false, "18:100_A_G")
	b := makeAllele("KEL*02.04", 1, false, "18:200_C_T")
	c := makeAllele("KEL*02.05", 1, false, "18:300_G_A")

	flattened := FlattenAlleles([]alleles.Pair{
		alleles.NewPair(a, b),
		alleles.NewPair(a, c),
	})

	assert.Len(t, flattened, 3)
}
