package db

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// GeneConfig is one registered blood-group gene: where its locus
// lives and whether its biology permits more than two expressed
// alleles (co-existing pair hypotheses are only generated and pruned
// for genes carrying the flag).
type GeneConfig struct {
	Name       string `yaml:"name"`
	Chromosome string `yaml:"chromosome"`
	Start      int64  `yaml:"start"`
	End        int64  `yaml:"end"`
	CoExisting bool   `yaml:"coExisting"`
}

// Covers reports whether a position falls inside the gene's locus.
// A registry entry without explicit bounds claims its whole chromosome.
func (g GeneConfig) Covers(chromosome string, position int64) bool {
	if g.Chromosome != chromosome {
		return false
	}
	if g.Start == 0 && g.End == 0 {
		return true
	}
	return position >= g.Start && position <= g.End
}

type registryFile struct {
	Genes []GeneConfig `yaml:"genes"`
}

// Registry is the set of blood-group genes the service genotypes,
// loaded once at startup from the genes yaml file.
type Registry struct {
	genes        map[string]GeneConfig
	orderedNames []string
}

func LoadRegistry(path string) (*Registry, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading gene registry %s : %w", path, err)
	}

	var parsed registryFile
	if err := yaml.Unmarshal(contents, &parsed); err != nil {
		return nil, fmt.Errorf("parsing gene registry %s : %w", path, err)
	}
	if len(parsed.Genes) == 0 {
		return nil, fmt.Errorf("gene registry %s lists no genes", path)
	}

	registry := &Registry{genes: map[string]GeneConfig{}}
	coExistingCount := 0
	for _, gene := range parsed.Genes {
		if gene.Name == "" || gene.Chromosome == "" {
			return nil, fmt.Errorf("gene registry %s : entry missing name or chromosome", path)
		}
		if _, duplicate := registry.genes[gene.Name]; duplicate {
			return nil, fmt.Errorf("gene registry %s : duplicate gene %s", path, gene.Name)
		}
		registry.genes[gene.Name] = gene
		registry.orderedNames = append(registry.orderedNames, gene.Name)
		if gene.CoExisting {
			coExistingCount++
		}
	}
	if coExistingCount > 1 {
		return nil, fmt.Errorf("gene registry %s : at most one gene may allow co-existing alleles, got %d", path, coExistingCount)
	}

	fmt.Printf("[%s] - Gene registry loaded: %d genes\n", time.Now(), len(registry.orderedNames))
	return registry, nil
}

func (r *Registry) Gene(name string) (GeneConfig, bool) {
	gene, ok := r.genes[name]
	return gene, ok
}

func (r *Registry) CoExisting(name string) bool {
	return r.genes[name].CoExisting
}

// Names returns the registered gene names in file order
func (r *Registry) Names() []string {
	return append([]string{}, r.orderedNames...)
}

// Chromosomes returns the distinct chromosomes carrying registered loci
func (r *Registry) Chromosomes() map[string]struct{} {
	chromosomes := map[string]struct{}{}
	for _, gene := range r.genes {
		chromosomes[gene.Chromosome] = struct{}{}
	}
	return chromosomes
}

// GenesOnChromosome lists the registered genes whose locus is on the
// given chromosome, in file order
func (r *Registry) GenesOnChromosome(chromosome string) []GeneConfig {
	var matches []GeneConfig
	for _, name := range r.orderedNames {
		if gene := r.genes[name]; gene.Chromosome == chromosome {
			matches = append(matches, gene)
		}
	}
	return matches
}

// GeneAt locates the registered gene covering a chromosome position
func (r *Registry) GeneAt(chromosome string, position int64) (GeneConfig, bool) {
	for _, gene := range r.GenesOnChromosome(chromosome) {
		if gene.Covers(chromosome, position) {
			return gene, true
		}
	}
	return GeneConfig{}, false
}
