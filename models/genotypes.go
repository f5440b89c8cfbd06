package models

// GenotypeDocument is the per-(sample, gene) result indexed into
// Elasticsearch once the pruning pipeline finishes: the surviving
// diploid hypotheses plus the removal ledger that produced them.
type GenotypeDocument struct {
	Id        string   `json:"id"`
	RequestId string   `json:"requestId"`
	SampleId  string   `json:"sampleId"`
	Gene      string   `json:"gene"`
	Phased    bool     `json:"phased"`
	Status    string   `json:"status"` // resolved | ambiguous | unresolved
	Pairs     []string `json:"pairs"`  // "A/B" survivor labels
	Weight    int      `json:"weight"` // summed weight of the best survivor

	Removals  []RemovalRecord `json:"removals"`
	CreatedAt string          `json:"createdAt"`
}

// RemovalRecord is one ledger entry: the filter that evicted and what
// it evicted
type RemovalRecord struct {
	Filter  string   `json:"filter"`
	Pairs   []string `json:"pairs,omitempty"`
	Alleles []string `json:"alleles,omitempty"`
}

const (
	GenotypeStatusResolved   = "resolved"
	GenotypeStatusAmbiguous  = "ambiguous"
	GenotypeStatusUnresolved = "unresolved"
)
