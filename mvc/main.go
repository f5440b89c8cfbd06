package mvc

import (
	"hemotype/api/contexts"
	"hemotype/api/models"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
)

func RetrieveCommonElements(c echo.Context) (*es7.Client, *models.Config, []string, string, bool) {
	hc := c.(*contexts.HemotypeContext)

	es := hc.Es7Client
	cfg := hc.Config

	sampleIds := hc.SampleIds
	gene := hc.Gene
	phased := hc.Phased

	return es, cfg, sampleIds, gene, phased
}
