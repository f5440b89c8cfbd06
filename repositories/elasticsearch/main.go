package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"hemotype/api/models"

	"github.com/Jeffail/gabs"
	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/mitchellh/mapstructure"
)

const genotypesIndex = "genotypes"

// GetGenotypeDocuments queries the genotypes index, optionally
// constrained by sample ids, gene and result status. Empty arguments
// (or the "*" wildcard for samples) leave that constraint out.
func GetGenotypeDocuments(cfg *models.Config, es *es7.Client,
	sampleIds []string, gene string, status string, size int) ([]models.GenotypeDocument, error) {

	// begin building the request body.
	mustMap := []map[string]interface{}{}

	if len(sampleIds) > 0 && !(len(sampleIds) == 1 && sampleIds[0] == "*") {
		shouldMap := []map[string]interface{}{}
		for _, sampleId := range sampleIds {
			shouldMap = append(shouldMap, map[string]interface{}{
				"match": map[string]interface{}{
					"sampleId": map[string]interface{}{
						"query": sampleId,
					},
				},
			})
		}
		mustMap = append(mustMap, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               shouldMap,
				"minimum_should_match": 1,
			},
		})
	}

	if gene != "" {
		mustMap = append(mustMap, map[string]interface{}{
			"match": map[string]interface{}{
				"gene": map[string]interface{}{
					"query": gene,
				},
			},
		})
	}

	if status != "" {
		mustMap = append(mustMap, map[string]interface{}{
			"match": map[string]interface{}{
				"status": map[string]interface{}{
					"query": status,
				},
			},
		})
	}

	if size <= 0 {
		size = 100
	}

	// overall query structure
	var buf bytes.Buffer
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{{
					"bool": map[string]interface{}{
						"must": mustMap,
					}},
				},
			},
		},
		"size": size,
		"sort": map[string]string{
			"createdAt": "desc",
		},
	}

	// encode the query
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		log.Fatalf("Error encoding query: %s\n", err)
	}

	if cfg.Debug {
		// view the outbound elasticsearch query
		fmt.Println(buf.String())
	}

	fmt.Printf("Query Start: %s\n", time.Now())

	// Perform the search request.
	res, searchErr := es.Search(
		es.Search.WithContext(context.Background()),
		es.Search.WithIndex(genotypesIndex),
		es.Search.WithBody(&buf),
		es.Search.WithTrackTotalHits(true),
		es.Search.WithPretty(),
	)
	if searchErr != nil {
		return nil, fmt.Errorf("error getting response: %w", searchErr)
	}
	defer res.Body.Close()

	resultString := res.String()
	if cfg.Debug {
		fmt.Println(resultString)
	}

	// Known bug: response comes back with a preceding '[200 OK] ' which needs trimming (hence the [9:])
	result := make(map[string]interface{})
	if umErr := json.Unmarshal([]byte(resultString[9:]), &result); umErr != nil {
		return nil, fmt.Errorf("error unmarshalling response: %w", umErr)
	}

	fmt.Printf("Query End: %s\n", time.Now())

	return decodeGenotypeHits(result)
}

// decodeGenotypeHits pulls each hit's _source out of a raw search
// response and decodes it into a GenotypeDocument
func decodeGenotypeHits(result map[string]interface{}) ([]models.GenotypeDocument, error) {
	hitsWrapper, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("malformed search response: no hits")
	}

	allDocHits := []map[string]interface{}{}
	if err := mapstructure.Decode(hitsWrapper["hits"], &allDocHits); err != nil {
		return nil, fmt.Errorf("error decoding hits: %w", err)
	}

	documents := make([]models.GenotypeDocument, 0, len(allDocHits))
	for _, hit := range allDocHits {
		var document models.GenotypeDocument
		if err := mapstructure.Decode(hit["_source"], &document); err != nil {
			fmt.Printf("[%s] - Skipping undecodable genotype hit : %s\n", time.Now(), err)
			continue
		}
		documents = append(documents, document)
	}
	return documents, nil
}

// GetGenotypesBucketsByKeyword aggregates the genotypes index by one
// keyword field and returns the parsed aggregation container
func GetGenotypesBucketsByKeyword(cfg *models.Config, es *es7.Client, keyword string) (*gabs.Container, error) {

	// begin building the request body.
	var buf bytes.Buffer
	aggMap := map[string]interface{}{
		"size": "0",
		"aggs": map[string]interface{}{
			"items": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": keyword,
					"size":  "10000", // increases the number of buckets returned (default is 10)
				},
			},
		},
	}

	// encode the query
	if err := json.NewEncoder(&buf).Encode(aggMap); err != nil {
		log.Fatalf("Error encoding aggMap: %s\n", err)
	}

	if cfg.Debug {
		// view the outbound elasticsearch query
		fmt.Println(buf.String())
	}

	// Perform the search request.
	res, searchErr := es.Search(
		es.Search.WithContext(context.Background()),
		es.Search.WithIndex(genotypesIndex),
		es.Search.WithBody(&buf),
		es.Search.WithTrackTotalHits(true),
		es.Search.WithPretty(),
	)
	if searchErr != nil {
		return nil, fmt.Errorf("error getting response: %w", searchErr)
	}
	defer res.Body.Close()

	resultString := res.String()
	if cfg.Debug {
		fmt.Println(resultString)
	}

	// Known bug: response comes back with a preceding '[200 OK] ' which needs trimming (hence the [9:])
	parsed, parseErr := gabs.ParseJSON([]byte(resultString[9:]))
	if parseErr != nil {
		return nil, fmt.Errorf("error parsing aggregation response: %w", parseErr)
	}
	return parsed, nil
}

// DeleteGenotypesByRequestId removes every result document a
// genotyping request produced
func DeleteGenotypesByRequestId(cfg *models.Config, es *es7.Client, requestId string) error {

	var buf bytes.Buffer
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"requestId": map[string]interface{}{
					"query": requestId,
				},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		log.Fatalf("Error encoding query: %s\n", err)
	}

	res, deleteErr := es.DeleteByQuery([]string{genotypesIndex}, &buf)
	if deleteErr != nil {
		return fmt.Errorf("error deleting genotypes for request %s : %w", requestId, deleteErr)
	}
	defer res.Body.Close()

	if cfg.Debug {
		fmt.Println(res.String())
	}
	return nil
}
