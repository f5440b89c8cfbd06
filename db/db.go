package db

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"hemotype/api/models/alleles"
)

// LowWeight is the default evidentiary weight for allele definitions
// the database does not rank explicitly. High enough that any ranked
// definition outcompetes an unranked one in the weight tiebreak.
const LowWeight = 1_000

// Database is the reference allele-definition universe, loaded once
// at startup from the tab-separated definitions file and keyed by gene.
type Database struct {
	Assembly string

	perGene    map[string][]*alleles.Allele
	references map[string]*alleles.Allele

	// lane positions: per chromosome, the positions every reference
	// haplotype covers implicitly ("pos_ref" entries)
	lane map[string]map[string]struct{}
}

// Load reads the allele definitions file. assembly selects which
// coordinate column to read ("GRCh37" or "GRCh38"); variant
// identifiers come out as "chrom:pos_ref_alt".
func Load(path string, assembly string) (*Database, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening allele database %s : %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("allele database %s is empty", path)
	}
	columns := map[string]int{}
	for index, name := range strings.Split(scanner.Text(), "\t") {
		columns[strings.TrimSpace(name)] = index
	}
	for _, required := range []string{"Genotype", "Chrom", assembly, "Weight_of_genotype", "Reference_genotype", "Sub_type", "Lane"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("allele database %s : missing column %s", path, required)
		}
	}

	database := &Database{
		Assembly:   assembly,
		perGene:    map[string][]*alleles.Allele{},
		references: map[string]*alleles.Allele{},
		lane:       map[string]map[string]struct{}{},
	}

	lineNumber := 1
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		genotype := fieldAt(fields, columns["Genotype"])
		chrom := fieldAt(fields, columns["Chrom"])
		rawVariants := fieldAt(fields, columns[assembly])
		rawWeight := fieldAt(fields, columns["Weight_of_genotype"])
		isReference := strings.EqualFold(fieldAt(fields, columns["Reference_genotype"]), "Yes")
		subType := fieldAt(fields, columns["Sub_type"])
		isLane := strings.EqualFold(fieldAt(fields, columns["Lane"]), "True")

		if genotype == "" || chrom == "" || rawVariants == "" || rawVariants == "." {
			continue
		}
		gene := strings.Split(genotype, "*")[0]

		weight := LowWeight
		if rawWeight != "" && rawWeight != "." {
			weight, err = strconv.Atoi(rawWeight)
			if err != nil {
				return nil, fmt.Errorf("allele database %s line %d : bad weight %q", path, lineNumber, rawWeight)
			}
		}

		var variants []string
		for _, rawVariant := range strings.Split(rawVariants, ",") {
			rawVariant = strings.TrimSpace(rawVariant)
			if rawVariant == "" {
				continue
			}
			variants = append(variants, chrom+":"+rawVariant)
			if isLane && strings.HasSuffix(rawVariant, "_ref") {
				position := strings.Split(rawVariant, "_")[0]
				if database.lane[chrom] == nil {
					database.lane[chrom] = map[string]struct{}{}
				}
				database.lane[chrom][position] = struct{}{}
			}
		}

		allele := alleles.NewAllele(genotype, variants, weight, isReference, subType)
		database.perGene[gene] = append(database.perGene[gene], allele)
		if isReference {
			if _, duplicate := database.references[gene]; duplicate {
				return nil, fmt.Errorf("allele database %s line %d : second reference definition for %s", path, lineNumber, gene)
			}
			database.references[gene] = allele
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading allele database %s : %w", path, err)
	}

	for gene := range database.perGene {
		if _, ok := database.references[gene]; !ok {
			return nil, fmt.Errorf("allele database %s : no reference definition for %s", path, gene)
		}
	}

	fmt.Printf("[%s] - Allele database loaded (%s): %d genes, %d definitions\n",
		time.Now(), assembly, len(database.perGene), database.Size())
	return database, nil
}

func fieldAt(fields []string, index int) string {
	if index >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[index])
}

// AllelesFor returns the full definition universe of a gene
func (d *Database) AllelesFor(gene string) []*alleles.Allele {
	return d.perGene[gene]
}

// ReferenceAllele returns the one reference definition of a gene
func (d *Database) ReferenceAllele(gene string) (*alleles.Allele, bool) {
	reference, ok := d.references[gene]
	return reference, ok
}

// ReferenceAlleles returns the per-gene reference lookup the filter
// pipeline's fallback consults
func (d *Database) ReferenceAlleles() map[string]*alleles.Allele {
	lookup := make(map[string]*alleles.Allele, len(d.references))
	for gene, reference := range d.references {
		lookup[gene] = reference
	}
	return lookup
}

// LanePosition reports whether reference haplotypes implicitly cover
// the given position on a chromosome
func (d *Database) LanePosition(chrom string, position string) bool {
	_, ok := d.lane[chrom][position]
	return ok
}

// LanePositions lists a chromosome's wild-type covered positions in
// sorted order
func (d *Database) LanePositions(chrom string) []string {
	positions := make([]string, 0, len(d.lane[chrom]))
	for position := range d.lane[chrom] {
		positions = append(positions, position)
	}
	sort.Strings(positions)
	return positions
}

func (d *Database) Genes() []string {
	genes := make([]string, 0, len(d.perGene))
	for gene := range d.perGene {
		genes = append(genes, gene)
	}
	return genes
}

func (d *Database) Size() int {
	total := 0
	for _, definitions := range d.perGene {
		total += len(definitions)
	}
	return total
}
