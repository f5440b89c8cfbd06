package models

type GenotypesResponseDTO struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Data    []GenotypeDocument `json:"data"`
}

type GenotypesOverviewResponseDTO struct {
	Status  int                    `json:"status"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}
