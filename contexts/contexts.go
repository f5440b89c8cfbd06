package contexts

import (
	"hemotype/api/models"
	"hemotype/api/services"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
)

type (
	// "Helper" Context to pass into routes that need
	//  an elasticsearch client and other variables
	HemotypeContext struct {
		echo.Context
		Es7Client         *es7.Client
		Config            *models.Config
		GenotypingService *services.GenotypingService

		// calibrated by middleware
		SampleIds []string
		Gene      string
		Phased    bool
	}
)
