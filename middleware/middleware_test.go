package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"hemotype/api/contexts"
	"hemotype/api/db"
	"hemotype/api/services"

	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(target string) *contexts.HemotypeContext {
	e := echo.New()
	request := httptest.NewRequest(http.MethodGet, target, nil)
	recorder := httptest.NewRecorder()
	return &contexts.HemotypeContext{Context: e.NewContext(request, recorder)}
}

func passThrough(captured **contexts.HemotypeContext) echo.HandlerFunc {
	return func(c echo.Context) error {
		*captured = c.(*contexts.HemotypeContext)
		return nil
	}
}

func TestPhasedDefaultsToTrue(t *testing.T) {
	hc := newTestContext("/genotypes/unresolved")

	var seen *contexts.HemotypeContext
	err := CalibrateOptionalPhasedAttribute(passThrough(&seen))(hc)

	assert.NoError(t, err)
	assert.True(t, seen.Phased)
}

func TestPhasedOptOut(t *testing.T) {
	hc := newTestContext("/genotypes/unresolved?phased=false")

	var seen *contexts.HemotypeContext
	err := CalibrateOptionalPhasedAttribute(passThrough(&seen))(hc)

	assert.NoError(t, err)
	assert.False(t, seen.Phased)
}

func TestPhasedRejectsNonBoolean(t *testing.T) {
	hc := newTestContext("/genotypes/unresolved?phased=maybe")

	var seen *contexts.HemotypeContext
	err := CalibrateOptionalPhasedAttribute(passThrough(&seen))(hc)

	var httpErr *echo.HTTPError
	assert.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSingularSampleIdFallsBackToWildcard(t *testing.T) {
	hc := newTestContext("/genotypes/get/by/sampleId")

	var seen *contexts.HemotypeContext
	err := CalibrateOptionalSampleIdsSingularAttribute(passThrough(&seen))(hc)

	assert.NoError(t, err)
	assert.Equal(t, []string{"*"}, seen.SampleIds)
}

func TestPluralSampleIdsSplitOnComma(t *testing.T) {
	hc := newTestContext("/genotypes/get/by/sampleId?ids=HG002,HG003")

	var seen *contexts.HemotypeContext
	err := CalibrateOptionalSampleIdsPluralAttribute(passThrough(&seen))(hc)

	assert.NoError(t, err)
	assert.Equal(t, []string{"HG002", "HG003"}, seen.SampleIds)
}

func TestGeneAttributeValidation(t *testing.T) {
	registryPath := filepath.Join(t.TempDir(), "genes.yaml")
	require.NoError(t, os.WriteFile(registryPath, []byte(
		"genes:\n  - name: KEL\n    chromosome: \"18\"\n"), 0o644))
	registry, err := db.LoadRegistry(registryPath)
	require.NoError(t, err)

	t.Run("registered gene is upper-cased onto the context", func(t *testing.T) {
		hc := newTestContext("/genotypes/get/by/sampleId?gene=kel")
		hc.GenotypingService = &services.GenotypingService{Registry: registry}

		var seen *contexts.HemotypeContext
		err := ValidateOptionalGeneAttribute(passThrough(&seen))(hc)

		assert.NoError(t, err)
		assert.Equal(t, "KEL", seen.Gene)
	})

	t.Run("unknown gene is rejected", func(t *testing.T) {
		hc := newTestContext("/genotypes/get/by/sampleId?gene=ZZZ")
		hc.GenotypingService = &services.GenotypingService{Registry: registry}

		var seen *contexts.HemotypeContext
		err := ValidateOptionalGeneAttribute(passThrough(&seen))(hc)

		var httpErr *echo.HTTPError
		assert.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}
