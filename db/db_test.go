package db

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const definitionsHeader = "Genotype\tChrom\tGRCh37\tGRCh38\tWeight_of_genotype\tReference_genotype\tSub_type\tLane\n"

func writeDefinitions(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alleles.tsv")
	assert.NoError(t, os.WriteFile(path, []byte(definitionsHeader+rows), 0644))
	return path
}

func TestLoadBuildsPerGeneUniverses(t *testing.T) {
	path := writeDefinitions(t,
		"KEL*02\t18\t100_ref\t100_ref\t1\tYes\tKEL*02\tTrue\n"+
			"KEL*02.03\t18\t200_C_T\t210_C_T\t2\tNo\tKEL*02\tFalse\n"+
			"JK*01\t18\t300_ref\t300_ref\t1\tYes\tJK*01\tTrue\n")

	database, err := Load(path, "GRCh38")

	assert.NoError(t, err)
	assert.Len(t, database.AllelesFor("KEL"), 2)
	assert.Len(t, database.AllelesFor("JK"), 1)

	reference, ok := database.ReferenceAllele("KEL")
	assert.True(t, ok)
	assert.True(t, reference.Reference())
	assert.Equal(t, "KEL*02", reference.Genotype())
}

func TestLoadSelectsAssemblyColumn(t *testing.T) {
	path := writeDefinitions(t,
		"KEL*02\t18\t100_ref\t110_ref\t1\tYes\tKEL*02\tTrue\n"+
			"KEL*02.03\t18\t200_C_T\t210_C_T\t2\tNo\tKEL*02\tFalse\n")

	grch37, err := Load(path, "GRCh37")
	assert.NoError(t, err)
	grch38, err := Load(path, "GRCh38")
	assert.NoError(t, err)

	assert.True(t, grch37.AllelesFor("KEL")[1].Has("18:200_C_T"))
	assert.True(t, grch38.AllelesFor("KEL")[1].Has("18:210_C_T"))
}

func TestLoadDefaultsMissingWeight(t *testing.T) {
	path := writeDefinitions(t,
		"KEL*02\t18\t100_ref\t100_ref\t1\tYes\tKEL*02\tTrue\n"+
			"KEL*02.03\t18\t200_C_T\t200_C_T\t.\tNo\tKEL*02\tFalse\n")

	database, err := Load(path, "GRCh38")

	assert.NoError(t, err)
	assert.Equal(t, LowWeight, database.AllelesFor("KEL")[1].WeightGeno())
}

func TestLoadTracksLanePositions(t *testing.T) {
	path := writeDefinitions(t,
		"KEL*02\t18\t100_ref,200_C_T\t100_ref,200_C_T\t1\tYes\tKEL*02\tTrue\n")

	database, err := Load(path, "GRCh38")

	assert.NoError(t, err)
	assert.True(t, database.LanePosition("18", "100"))
	assert.False(t, database.LanePosition("18", "200"))
	assert.False(t, database.LanePosition("7", "100"))
	assert.Equal(t, []string{"100"}, database.LanePositions("18"))
	assert.Empty(t, database.LanePositions("7"))
}

func TestLoadRejectsGeneWithoutReference(t *testing.T) {
	path := writeDefinitions(t,
		"KEL*02.03\t18\t200_C_T\t200_C_T\t2\tNo\tKEL*02\tFalse\n")

	_, err := Load(path, "GRCh38")

	assert.Error(t, err)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genes.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(
		"genes:\n"+
			"  - name: KEL\n"+
			"    chromosome: \"18\"\n"+
			"  - name: KN\n"+
			"    chromosome: \"1\"\n"+
			"    coExisting: true\n"), 0644))

	registry, err := LoadRegistry(path)

	assert.NoError(t, err)
	assert.Equal(t, []string{"KEL", "KN"}, registry.Names())
	assert.True(t, registry.CoExisting("KN"))
	assert.False(t, registry.CoExisting("KEL"))

	kel, ok := registry.Gene("KEL")
	assert.True(t, ok)
	assert.Equal(t, "18", kel.Chromosome)

	assert.Len(t, registry.GenesOnChromosome("1"), 1)
}

func TestLoadRegistryRejectsTwoCoExistingGenes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genes.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(
		"genes:\n"+
			"  - name: KN\n"+
			"    chromosome: \"1\"\n"+
			"    coExisting: true\n"+
			"  - name: MNS\n"+
			"    chromosome: \"4\"\n"+
			"    coExisting: true\n"), 0644))

	_, err := LoadRegistry(path)

	assert.Error(t, err)
}

func TestRegistryGeneAtRespectsBounds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genes.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(
		"genes:\n"+
			"  - name: KEL\n"+
			"    chromosome: \"7\"\n"+
			"    start: 142913000\n"+
			"    end: 142960000\n"+
			"  - name: JK\n"+
			"    chromosome: \"18\"\n"), 0644))

	registry, err := LoadRegistry(path)
	assert.NoError(t, err)

	kel, found := registry.GeneAt("7", 142914000)
	assert.True(t, found)
	assert.Equal(t, "KEL", kel.Name)

	_, found = registry.GeneAt("7", 1000)
	assert.False(t, found)

	// no explicit bounds -> whole chromosome
	jk, found := registry.GeneAt("18", 5)
	assert.True(t, found)
	assert.Equal(t, "JK", jk.Name)
}
