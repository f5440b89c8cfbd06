package middleware

import (
	"net/http"
	"strconv"

	"hemotype/api/contexts"

	"github.com/labstack/echo"
)

/*
Echo middleware to prepare the context's `phased` flag from an
optionally provided HTTP query parameter. Defaults to true: callers
working with unphased call sets opt out explicitly, which turns the
entire pruning pipeline into a pass-through.
*/
func CalibrateOptionalPhasedAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		hc := c.(*contexts.HemotypeContext)

		hc.Phased = true
		if phasedQP := c.QueryParam("phased"); len(phasedQP) > 0 {
			phased, err := strconv.ParseBool(phasedQP)
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "phased must be true or false")
			}
			hc.Phased = phased
		}

		return next(hc)
	}
}
