package middleware

import (
	"strings"

	"hemotype/api/contexts"

	"github.com/labstack/echo"
)

/*
Echo middleware to prepare the context for an optionally provided singular `id` HTTP query parameter
*/
func CalibrateOptionalSampleIdsSingularAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hc := c.(*contexts.HemotypeContext)

		// check for id query parameter
		sampleId := c.QueryParam("id")
		if len(sampleId) == 0 {
			sampleId = "*" // wildcard
		}

		hc.SampleIds = append(hc.SampleIds, sampleId)
		return next(hc)
	}
}

/*
Echo middleware to prepare the context for an optionally provided pluralized `id` (spelled `ids`) HTTP query parameter
*/
func CalibrateOptionalSampleIdsPluralAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hc := c.(*contexts.HemotypeContext)

		// check for id's query parameter
		var (
			sampleIdQP = c.QueryParam("ids")
			sampleIds  []string
		)
		if len(sampleIdQP) > 0 {
			sampleIds = strings.Split(sampleIdQP, ",")
		} else {
			sampleIds = append(sampleIds, "*") // wildcard
		}

		hc.SampleIds = append(hc.SampleIds, sampleIds...)
		return next(hc)
	}
}
