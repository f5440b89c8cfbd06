package mvc

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hemotype/api/contexts"
	"hemotype/api/models"
	"hemotype/api/models/ingest"
	genotypesService "hemotype/api/services/genotypes"

	"github.com/google/uuid"
	"github.com/labstack/echo"
)

// GenotypesIngest queues one VCF from the configured directory for
// genotyping. The heavy lifting happens on a background goroutine
// bounded by the file-processing concurrency queue; the handler
// returns as soon as the request is registered.
func GenotypesIngest(c echo.Context) error {
	hc := c.(*contexts.HemotypeContext)
	gz := hc.GenotypingService
	cfg := hc.Config
	phased := hc.Phased

	fileName := strings.TrimSpace(c.QueryParam("file"))
	if fileName == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "missing required query parameter: file",
		})
	}
	// the VCF directory is the only place files are served from
	if strings.Contains(fileName, "..") || strings.ContainsRune(fileName, os.PathSeparator) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "file must be a bare filename inside the configured VCF directory",
		})
	}

	vcfPath := filepath.Join(cfg.Api.VcfPath, fileName)
	if _, statErr := os.Stat(vcfPath); statErr != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("file %s not found in VCF directory", fileName),
		})
	}

	if gz.FilenameAlreadyRunning(fileName) {
		return c.JSON(http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("file %s is already being processed", fileName),
		})
	}

	request := &ingest.GenotypeIngestRequest{
		Id:        uuid.New(),
		Filename:  fileName,
		State:     ingest.Queued,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
	gz.RequestChan <- request

	go func() {
		// take a spot in the queue, freed once this file is done
		gz.ConcurrentFileIngestionQueue <- true
		defer func() { <-gz.ConcurrentFileIngestionQueue }()

		request.State = ingest.Running
		gz.RequestChan <- request

		allEvidence, processErr := gz.ProcessVcf(vcfPath)
		if processErr != nil {
			fmt.Printf("[%s] - VCF processing failed for %s : %s\n", time.Now(), fileName, processErr)
			request.State = ingest.Error
			request.Message = processErr.Error()
			gz.RequestChan <- request
			return
		}

		resolvedTotal, failedTotal := 0, 0
		for sampleId, geneEvidence := range allEvidence {
			resolved, failed := gz.GenotypeSample(request.Id.String(), sampleId, geneEvidence, phased)
			resolvedTotal += resolved
			failedTotal += failed
		}

		request.State = ingest.Done
		request.SamplesTotal = len(allEvidence)
		request.GenesResolved = resolvedTotal
		request.GenesFailed = failedTotal
		request.Message = fmt.Sprintf("%d samples, %d genes resolved, %d unresolved",
			len(allEvidence), resolvedTotal, failedTotal)
		gz.RequestChan <- request

		fmt.Printf("[%s] - File %s genotyped: %s\n", time.Now(), fileName, request.Message)
	}()

	return c.JSON(http.StatusOK, ingest.IngestResponseDTO{
		Id:       request.Id,
		Filename: request.Filename,
		State:    request.State,
		Message:  "Genotyping request queued",
	})
}

// GetAllGenotypeIngestionRequests lists every known genotyping
// request and its state
func GetAllGenotypeIngestionRequests(c echo.Context) error {
	hc := c.(*contexts.HemotypeContext)
	gz := hc.GenotypingService

	gz.RequestMapMux.RLock()
	defer gz.RequestMapMux.RUnlock()

	requests := make([]*ingest.GenotypeIngestRequest, 0, len(gz.RequestMap))
	for _, request := range gz.RequestMap {
		requests = append(requests, request)
	}
	return c.JSON(http.StatusOK, requests)
}

// GenotypesGetBySampleIds serves stored result documents for the
// calibrated sample ids, optionally restricted to one gene
func GenotypesGetBySampleIds(c echo.Context) error {
	es, cfg, sampleIds, gene, _ := RetrieveCommonElements(c)

	documents, err := genotypesService.GetGenotypesBySampleIds(es, cfg, sampleIds, gene)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.GenotypesResponseDTO{
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.GenotypesResponseDTO{
		Status:  http.StatusOK,
		Message: "Success",
		Data:    documents,
	})
}

// GetGenotypesOverview serves the aggregated view of everything
// indexed so far, including how often each pruning rule fired
func GetGenotypesOverview(c echo.Context) error {
	es, cfg, _, _, _ := RetrieveCommonElements(c)

	return c.JSON(http.StatusOK, models.GenotypesOverviewResponseDTO{
		Status:  http.StatusOK,
		Message: "Success",
		Data:    genotypesService.GetGenotypesOverview(es, cfg),
	})
}

// GetUnresolvedGenotypes serves the documents the pipeline reported
// unresolvable, for diagnostics
func GetUnresolvedGenotypes(c echo.Context) error {
	es, cfg, _, _, _ := RetrieveCommonElements(c)

	documents, err := genotypesService.GetUnresolvedGenotypes(es, cfg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.GenotypesResponseDTO{
			Status:  http.StatusInternalServerError,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.GenotypesResponseDTO{
		Status:  http.StatusOK,
		Message: "Success",
		Data:    documents,
	})
}
