package ingest

import (
	"github.com/google/uuid"
)

type State string

const (
	Queued  State = "Queued"
	Running State = "Running"
	Done    State = "Done"
	Error   State = "Error"
)

type GenotypeIngestRequest struct {
	Id            uuid.UUID `json:"id"`
	Filename      string    `json:"filename"`
	State         State     `json:"state"`
	Message       string    `json:"message"`
	SamplesTotal  int       `json:"samplesTotal"`
	GenesResolved int       `json:"genesResolved"`
	GenesFailed   int       `json:"genesFailed"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
}

type IngestResponseDTO struct {
	Id       uuid.UUID `json:"id"`
	Filename string    `json:"filename"`
	State    State     `json:"state"`
	Message  string    `json:"message"`
}
