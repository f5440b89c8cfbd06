package genotypes

import (
	"fmt"
	"time"

	"hemotype/api/models"
	esRepo "hemotype/api/repositories/elasticsearch"

	es7 "github.com/elastic/go-elasticsearch/v7"
)

// GetGenotypesOverview aggregates the genotypes index into per-gene,
// per-status, per-sample and per-filter counts. The filter counts are
// the removal-ledger view: how often each pruning rule actually fired.
func GetGenotypesOverview(es *es7.Client, cfg *models.Config) map[string]interface{} {
	overview := map[string]interface{}{}

	callGetBucketsAggregation := func(keyword string, name string) {
		container, err := esRepo.GetGenotypesBucketsByKeyword(cfg, es, keyword)
		if err != nil {
			fmt.Printf("[%s] - Overview aggregation %s failed : %s\n", time.Now(), keyword, err)
			return
		}

		bucketsMap := map[string]interface{}{}
		children, childrenErr := container.Path("aggregations.items.buckets").Children()
		if childrenErr != nil {
			fmt.Printf("[%s] - Overview aggregation %s returned no buckets : %s\n", time.Now(), keyword, childrenErr)
			return
		}
		for _, bucket := range children {
			key := fmt.Sprintf("%v", bucket.Path("key").Data())
			bucketsMap[key] = bucket.Path("doc_count").Data()
		}
		overview[name] = bucketsMap
	}

	callGetBucketsAggregation("gene.keyword", "genes")
	callGetBucketsAggregation("status.keyword", "statuses")
	callGetBucketsAggregation("sampleId.keyword", "sampleIDs")
	callGetBucketsAggregation("removals.filter.keyword", "filters")

	return overview
}

// GetGenotypesBySampleIds fetches result documents for the given
// samples, optionally restricted to one gene
func GetGenotypesBySampleIds(es *es7.Client, cfg *models.Config, sampleIds []string, gene string) ([]models.GenotypeDocument, error) {
	return esRepo.GetGenotypeDocuments(cfg, es, sampleIds, gene, "", 1000)
}

// GetUnresolvedGenotypes fetches every document the pipeline reported
// as unresolvable, for diagnostics
func GetUnresolvedGenotypes(es *es7.Client, cfg *models.Config) ([]models.GenotypeDocument, error) {
	return esRepo.GetGenotypeDocuments(cfg, es, nil, "", models.GenotypeStatusUnresolved, 1000)
}
