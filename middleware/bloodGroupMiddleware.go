package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"hemotype/api/contexts"

	"github.com/labstack/echo"
)

/*
Echo middleware to validate an optionally provided `gene` HTTP query
parameter against the registered blood-group genes
*/
func ValidateOptionalGeneAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hc := c.(*contexts.HemotypeContext)

		gene := strings.ToUpper(strings.TrimSpace(c.QueryParam("gene")))
		if len(gene) > 0 {
			if _, registered := hc.GenotypingService.Registry.Gene(gene); !registered {
				return echo.NewHTTPError(http.StatusBadRequest,
					fmt.Sprintf("unknown blood-group gene: %s", gene))
			}
			hc.Gene = gene
		}

		return next(hc)
	}
}
