package services

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"hemotype/api/db"
	"hemotype/api/models"
	alleleState "hemotype/api/models/constants/allele-state"
	phase "hemotype/api/models/constants/phase"
	z "hemotype/api/models/constants/zygosity"
	"hemotype/api/services/filtering"

	"github.com/stretchr/testify/assert"
)

const testVcf = `##fileformat=VCFv4.2
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
##FORMAT=<ID=PS,Number=1,Type=Integer,Description="Phase set">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	HG002	HG003
18	100	.	A	G	50	PASS	.	GT:PS	1|0:100	0|0:.
18	200	.	C	T	50	PASS	.	GT:PS	0|1:100	1/1:.
18	300	.	G	A	50	PASS	.	GT:PS	1|0:100	1/1:.
7	500	.	G	A	50	PASS	.	GT	0/1	0/0
99	900	.	G	A	50	PASS	.	GT	0/1	0/1
`

func writeRegistry(t *testing.T) *db.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genes.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(
		"genes:\n"+
			"  - name: KEL\n"+
			"    chromosome: \"18\"\n"+
			"  - name: KN\n"+
			"    chromosome: \"7\"\n"+
			"    coExisting: true\n"), 0644))
	registry, err := db.LoadRegistry(path)
	assert.NoError(t, err)
	return registry
}

func writeDatabase(t *testing.T) *db.Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alleles.tsv")
	rows := "Genotype\tChrom\tGRCh37\tGRCh38\tWeight_of_genotype\tReference_genotype\tSub_type\tLane\n" +
		"KEL*02\t18\t1_ref,300_ref\t1_ref,300_ref\t1\tYes\tKEL*02\tTrue\n" +
		"KEL*02.03\t18\t100_A_G\t100_A_G\t2\tNo\tKEL*02\tFalse\n" +
		"KEL*02.04\t18\t200_C_T\t200_C_T\t2\tNo\tKEL*02\tFalse\n" +
		"KN*01\t7\t2_ref\t2_ref\t1\tYes\tKN*01\tTrue\n" +
		"KN*01.06\t7\t500_G_A\t500_G_A\t2\tNo\tKN*01\tFalse\n"
	assert.NoError(t, os.WriteFile(path, []byte(rows), 0644))
	database, err := db.Load(path, "GRCh38")
	assert.NoError(t, err)
	return database
}

func testService(t *testing.T) *GenotypingService {
	t.Helper()
	cfg := &models.Config{}
	cfg.Api.GeneProcessingConcurrencyLevel = 2
	return &GenotypingService{
		Config:   cfg,
		Database: writeDatabase(t),
		Registry: writeRegistry(t),
	}
}

func TestProcessVcfBuildsPerSamplePerGeneEvidence(t *testing.T) {
	service := testService(t)
	path := filepath.Join(t.TempDir(), "calls.vcf")
	assert.NoError(t, os.WriteFile(path, []byte(testVcf), 0644))

	allEvidence, err := service.ProcessVcf(path)

	assert.NoError(t, err)

	hg002 := allEvidence["HG002"]
	assert.Contains(t, hg002, "KEL")
	assert.Contains(t, hg002, "KN")

	kel := hg002["KEL"]
	assert.True(t, kel.Observed("18:100_A_G"))
	assert.True(t, kel.IsHet("18:100_A_G"))
	assert.Equal(t, "1|0", kel.Phase("18:100_A_G"))
	assert.Equal(t, "100", kel.PhaseSet("18:100_A_G"))
	assert.Equal(t, "0|1", kel.Phase("18:200_C_T"))

	// the HET call at the wild-type covered position 300 yields a
	// mirrored reference entry in the same phased block
	assert.True(t, kel.IsHet("18:300_ref"))
	assert.Equal(t, "0|1", kel.Phase("18:300_ref"))
	assert.Equal(t, "100", kel.PhaseSet("18:300_ref"))

	// the uncalled covered position 1 is backfilled as homozygous ref
	assert.True(t, kel.IsHom("18:1_ref"))
	assert.Equal(t, phase.Homozygous, kel.Phase("18:1_ref"))
	assert.Equal(t, phase.NoPhaseSet, kel.PhaseSet("18:1_ref"))

	// unordered call without PS keeps the placeholder phase set
	kn := hg002["KN"]
	assert.Equal(t, "0/1", kn.Phase("7:500_G_A"))
	assert.Equal(t, phase.NoPhaseSet, kn.PhaseSet("7:500_G_A"))
	assert.True(t, kn.IsHom("7:2_ref"))

	// HG003: 0|0 at pos 100 skipped, 1/1 at pos 200 kept as homozygous
	hg003 := allEvidence["HG003"]
	kelOther := hg003["KEL"]
	assert.False(t, kelOther.Observed("18:100_A_G"))
	assert.True(t, kelOther.IsHom("18:200_C_T"))
	assert.Equal(t, phase.Homozygous, kelOther.Phase("18:200_C_T"))

	// the homozygous-alternate call at position 300 contradicts the
	// wild-type base: no reference entry enters the pool
	assert.True(t, kelOther.IsHom("18:300_G_A"))
	assert.False(t, kelOther.Observed("18:300_ref"))
	assert.True(t, kelOther.IsHom("18:1_ref"))

	// chromosome 99 is not a human chromosome; nothing was recorded
	for _, perGene := range allEvidence {
		for _, ev := range perGene {
			assert.False(t, ev.Observed("99:900_G_A"))
		}
	}
}

func TestProcessVcfReadsGzippedFiles(t *testing.T) {
	service := testService(t)
	path := filepath.Join(t.TempDir(), "calls.vcf.gz")

	f, err := os.Create(path)
	assert.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(testVcf))
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	assert.NoError(t, f.Close())

	allEvidence, err := service.ProcessVcf(path)

	assert.NoError(t, err)
	assert.True(t, allEvidence["HG002"]["KEL"].Observed("18:100_A_G"))
}

func TestNormalizePhase(t *testing.T) {
	assert.Equal(t, phase.Homozygous, normalizePhase("1|1", z.Homozygous))
	assert.Equal(t, phase.Homozygous, normalizePhase("1/1", z.Homozygous))
	assert.Equal(t, phase.Hemizygous, normalizePhase("1", z.Homozygous))
	assert.Equal(t, "1|0", normalizePhase("1|0", z.Heterozygous))
	assert.Equal(t, "0/1", normalizePhase("0/1", z.Heterozygous))
}

func TestOppositePhase(t *testing.T) {
	assert.Equal(t, "0|1", oppositePhase("1|0"))
	assert.Equal(t, "1|0", oppositePhase("0|1"))
	assert.Equal(t, "0/1", oppositePhase("0/1"))
	assert.Equal(t, "1/0", oppositePhase("1/0"))
}

func TestCalledAltIndexes(t *testing.T) {
	assert.Equal(t, []int{1}, calledAltIndexes("1|0"))
	assert.Equal(t, []int{1}, calledAltIndexes("1/1"))
	assert.Equal(t, []int{1, 2}, calledAltIndexes("1|2"))
	assert.Empty(t, calledAltIndexes("0/0"))
	assert.Empty(t, calledAltIndexes("./."))
}

func TestGenerateCandidatesRestrictsToSupportedAlleles(t *testing.T) {
	service := testService(t)
	path := filepath.Join(t.TempDir(), "calls.vcf")
	assert.NoError(t, os.WriteFile(path, []byte(testVcf), 0644))

	allEvidence, err := service.ProcessVcf(path)
	assert.NoError(t, err)

	gene, _ := service.Registry.Gene("KEL")
	bg, err := service.GenerateCandidates(gene, "HG003", allEvidence["HG003"]["KEL"])
	assert.NoError(t, err)

	// HG003 has only the HOM 18:200_C_T call: KEL*02.03 is unsupported
	labels := map[string]bool{}
	for _, allele := range bg.Raw() {
		labels[allele.Genotype()] = true
	}
	assert.True(t, labels["KEL*02"])
	assert.True(t, labels["KEL*02.04"])
	assert.False(t, labels["KEL*02.03"])

	// the HOM allele supports a self-pair hypothesis
	foundSelfPair := false
	for _, pair := range bg.Pairs(alleleState.Normal) {
		if pair.SameAllele() && pair.Allele1.Genotype() == "KEL*02.04" {
			foundSelfPair = true
		}
	}
	assert.True(t, foundSelfPair)
	assert.False(t, bg.CoExisting)
}

func TestPipelinePrunesReferenceContradictedAtCoveredPosition(t *testing.T) {
	service := testService(t)
	path := filepath.Join(t.TempDir(), "calls.vcf")
	assert.NoError(t, os.WriteFile(path, []byte(testVcf), 0644))

	allEvidence, err := service.ProcessVcf(path)
	assert.NoError(t, err)

	// HG003 is homozygous-alternate at the wild-type covered position
	// 300, so the reference definition (which needs 18:300_ref) is
	// contradicted and cannot survive pruning
	gene, _ := service.Registry.Gene("KEL")
	bg, err := service.GenerateCandidates(gene, "HG003", allEvidence["HG003"]["KEL"])
	assert.NoError(t, err)

	assert.NoError(t, filtering.Run(bg, true, service.Database.ReferenceAlleles()))
	assert.NotEmpty(t, bg.Pairs(alleleState.Normal))
	for _, pair := range bg.Pairs(alleleState.Normal) {
		assert.False(t, pair.ContainsReference(), "pair %s kept a contradicted reference", pair)
	}
	assert.NotEmpty(t, bg.RemovedPairs(filtering.NameMissingDefining))
}

func TestGenerateCandidatesCoExistingGeneGetsCoPairs(t *testing.T) {
	service := testService(t)
	path := filepath.Join(t.TempDir(), "calls.vcf")
	assert.NoError(t, os.WriteFile(path, []byte(testVcf), 0644))

	allEvidence, err := service.ProcessVcf(path)
	assert.NoError(t, err)

	gene, _ := service.Registry.Gene("KN")
	bg, err := service.GenerateCandidates(gene, "HG002", allEvidence["HG002"]["KN"])
	assert.NoError(t, err)

	assert.True(t, bg.CoExisting)
	assert.NotEmpty(t, bg.Pairs(alleleState.Co))
	assert.Len(t, bg.Pairs(alleleState.Co), len(bg.Pairs(alleleState.Normal)))
}

func TestGenerateCandidatesHetAlleleGetsNoSelfPair(t *testing.T) {
	service := testService(t)
	path := filepath.Join(t.TempDir(), "calls.vcf")
	assert.NoError(t, os.WriteFile(path, []byte(testVcf), 0644))

	allEvidence, err := service.ProcessVcf(path)
	assert.NoError(t, err)

	gene, _ := service.Registry.Gene("KEL")
	bg, err := service.GenerateCandidates(gene, "HG002", allEvidence["HG002"]["KEL"])
	assert.NoError(t, err)

	for _, pair := range bg.Pairs(alleleState.Normal) {
		if pair.SameAllele() && !pair.AllReference() {
			t.Errorf("unexpected self-pair for HET-defined allele: %s", pair)
		}
	}
}
