package models

type Config struct {
	Debug bool `envconfig:"HEMOTYPE_DEBUG" default:"false"`

	Api struct {
		Port                           string `envconfig:"HEMOTYPE_API_INTERNAL_PORT" default:"5000"`
		VcfPath                        string `envconfig:"HEMOTYPE_API_VCF_PATH" default:"./vcfs"`
		AlleleDbPath                   string `envconfig:"HEMOTYPE_API_ALLELE_DB_PATH" default:"./resources/alleles.tsv"`
		GeneRegistryPath               string `envconfig:"HEMOTYPE_API_GENE_REGISTRY_PATH" default:"./resources/genes.yaml"`
		Assembly                       string `envconfig:"HEMOTYPE_API_ASSEMBLY" default:"GRCh38"`
		BulkIndexingCap                int    `envconfig:"HEMOTYPE_API_BULK_INDEXING_CAP" default:"5000"`
		FileProcessingConcurrencyLevel int    `envconfig:"HEMOTYPE_API_FILE_PROCESSING_CONCURRENCY_LEVEL" default:"2"`
		GeneProcessingConcurrencyLevel int    `envconfig:"HEMOTYPE_API_GENE_PROCESSING_CONCURRENCY_LEVEL" default:"8"`
		RequestSanitationAfterDays     int    `envconfig:"HEMOTYPE_API_REQUEST_SANITATION_AFTER_DAYS" default:"7"`
	}

	Elasticsearch struct {
		Url      string `envconfig:"HEMOTYPE_ES_URL" default:"http://localhost:9200"`
		Username string `envconfig:"HEMOTYPE_ES_USERNAME"`
		Password string `envconfig:"HEMOTYPE_ES_PASSWORD"`
	}
}
