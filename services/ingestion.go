package services

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"hemotype/api/db"
	"hemotype/api/models"
	"hemotype/api/models/alleles"
	"hemotype/api/models/constants"
	alleleState "hemotype/api/models/constants/allele-state"
	"hemotype/api/models/constants/chromosome"
	phase "hemotype/api/models/constants/phase"
	z "hemotype/api/models/constants/zygosity"
	"hemotype/api/models/evidence"
	"hemotype/api/models/ingest"
	"hemotype/api/services/filtering"
	"hemotype/api/utils"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"github.com/google/uuid"
)

type (
	GenotypingService struct {
		Initialized                  bool
		RequestChan                  chan *ingest.GenotypeIngestRequest
		RequestMap                   map[string]*ingest.GenotypeIngestRequest
		RequestMapMux                sync.RWMutex
		BulkIndexingCapacity         int
		BulkIndexer                  esutil.BulkIndexer
		ConcurrentFileIngestionQueue chan bool
		ElasticsearchClient          *es7.Client
		Config                       *models.Config
		Database                     *db.Database
		Registry                     *db.Registry
	}

	// one sample's observations for one gene, accumulated during the
	// VCF scan and frozen into a VariantEvidence afterwards
	evidenceBuilder struct {
		zygosities map[string]constants.Zygosity
		phases     map[string]string
		phaseSets  map[string]string
	}

	// bookkeeping for one ProcessVcf run: the sample columns, the
	// chromosomes worth scanning, the per-sample per-gene builders and
	// the wild-type covered loci each sample had a call for
	vcfScan struct {
		headerSampleIds map[int]string
		chromosomes     map[string]struct{}
		builders        map[string]map[string]*evidenceBuilder
		laneLociSeen    map[string]map[string]struct{}
	}
)

func (b *evidenceBuilder) record(variantId string, zygosity constants.Zygosity, phaseString string, phaseSet string) {
	b.zygosities[variantId] = zygosity
	b.phases[variantId] = phaseString
	b.phaseSets[variantId] = phaseSet
}

func (s *vcfScan) builderFor(sampleId string, gene string) *evidenceBuilder {
	if s.builders[sampleId] == nil {
		s.builders[sampleId] = map[string]*evidenceBuilder{}
	}
	if s.builders[sampleId][gene] == nil {
		s.builders[sampleId][gene] = &evidenceBuilder{
			zygosities: map[string]constants.Zygosity{},
			phases:     map[string]string{},
			phaseSets:  map[string]string{},
		}
	}
	return s.builders[sampleId][gene]
}

func (s *vcfScan) markLaneSeen(sampleId string, locus string) {
	if s.laneLociSeen[sampleId] == nil {
		s.laneLociSeen[sampleId] = map[string]struct{}{}
	}
	s.laneLociSeen[sampleId][locus] = struct{}{}
}

func (s *vcfScan) laneSeen(sampleId string, locus string) bool {
	_, ok := s.laneLociSeen[sampleId][locus]
	return ok
}

func NewGenotypingService(es *es7.Client, cfg *models.Config, database *db.Database, registry *db.Registry) *GenotypingService {

	gz := &GenotypingService{
		Initialized:                  false,
		RequestChan:                  make(chan *ingest.GenotypeIngestRequest),
		RequestMap:                   map[string]*ingest.GenotypeIngestRequest{},
		RequestMapMux:                sync.RWMutex{},
		BulkIndexingCapacity:         cfg.Api.BulkIndexingCap,
		ConcurrentFileIngestionQueue: make(chan bool, cfg.Api.FileProcessingConcurrencyLevel),
		ElasticsearchClient:          es,
		Config:                       cfg,
		Database:                     database,
		Registry:                     registry,
	}

	//see: https://www.elastic.co/blog/why-am-i-seeing-bulk-rejections-in-my-elasticsearch-cluster
	numWorkers := gz.BulkIndexingCapacity / 100
	if numWorkers < 1 {
		numWorkers = 1
	}

	bi, _ := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      "genotypes",
		Client:     gz.ElasticsearchClient,
		NumWorkers: numWorkers,
	})
	gz.BulkIndexer = bi

	gz.Init()

	return gz
}

func (g *GenotypingService) Init() {
	// safeguard to prevent multiple initilizations
	if !g.Initialized {
		// spin up a go routine acting as a listener for
		// genotyping request updates
		go func() {
			for request := range g.RequestChan {
				if request.State == ingest.Queued {
					fmt.Printf("[%s] - Queueing a new genotyping request for %s\n", time.Now(), request.Filename)
				}

				request.UpdatedAt = time.Now().String()
				g.RequestMapMux.Lock()
				g.RequestMap[request.Id.String()] = request
				g.RequestMapMux.Unlock()
			}
		}()

		g.Initialized = true
	}
}

func (g *GenotypingService) FilenameAlreadyRunning(filename string) bool {
	g.RequestMapMux.Lock()
	defer g.RequestMapMux.Unlock()

	for _, request := range g.RequestMap {
		if request.Filename == filename && (request.State == ingest.Queued || request.State == ingest.Running) {
			return true
		}
	}
	return false
}

// ProcessVcf scans a (possibly gzipped) VCF and accumulates, per
// sample and per registered blood-group gene, the observed variant
// pool with zygosity, phase and phase-set. Rows outside registered
// loci are skipped. Wild-type covered positions ("pos_ref" rows in
// the allele database) additionally produce implied-reference pool
// entries: homozygous on both copies when the position has no
// alternate call, heterozygous opposite the alternate when it does.
func (g *GenotypingService) ProcessVcf(vcfFilePath string) (map[string]map[string]*evidence.VariantEvidence, error) {

	f, err := os.Open(vcfFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s : %w", vcfFilePath, err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(vcfFilePath, ".gz") {
		gzReader, gzErr := gzip.NewReader(f)
		if gzErr != nil {
			return nil, fmt.Errorf("failed to gunzip %s : %w", vcfFilePath, gzErr)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)

	var discoveredHeaders bool = false
	var headers []string

	scan := &vcfScan{
		headerSampleIds: make(map[int]string),
		chromosomes:     g.Registry.Chromosomes(),
		builders:        map[string]map[string]*evidenceBuilder{},
		laneLociSeen:    map[string]map[string]struct{}{},
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Gather Header row by seeking the CHROM string
		if !discoveredHeaders {
			if strings.HasPrefix(line, "#CHROM") {
				headers = strings.Split(line, "\t")

				for id, header := range headers {
					// determine if header is a default VCF header.
					// if it is not, assume it's a sampleId and keep
					// track of it with an id
					cleaned := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(header, "#", "")))
					if !utils.StringInSlice(cleaned, constants.VcfHeaders) {
						scan.headerSampleIds[id] = strings.TrimSpace(header)
					}
				}

				discoveredHeaders = true
				fmt.Printf("[%s] - Found %d samples in %s\n", time.Now(), len(scan.headerSampleIds), vcfFilePath)
				continue
			}
			continue
		}

		g.processVcfLine(line, scan)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s : %w", vcfFilePath, err)
	}
	if !discoveredHeaders {
		return nil, fmt.Errorf("no #CHROM header found in %s", vcfFilePath)
	}

	g.addMissingLaneReferences(scan)

	// freeze the builders
	allEvidence := map[string]map[string]*evidence.VariantEvidence{}
	for sample, perGene := range scan.builders {
		allEvidence[sample] = map[string]*evidence.VariantEvidence{}
		for gene, builder := range perGene {
			allEvidence[sample][gene] = evidence.New(builder.zygosities, builder.phases, builder.phaseSets)
		}
	}
	return allEvidence, nil
}

func (g *GenotypingService) processVcfLine(line string, scan *vcfScan) {

	rowComponents := strings.Split(line, "\t")
	if len(rowComponents) < 10 {
		return // no FORMAT or sample columns
	}

	chrom := strings.ReplaceAll(strings.TrimSpace(rowComponents[0]), "chr", "")
	if !chromosome.IsValidHumanChromosome(chrom) {
		return
	}
	if _, carriesLoci := scan.chromosomes[chrom]; !carriesLoci {
		return // no blood-group locus on this chromosome
	}

	position, posErr := strconv.ParseInt(strings.TrimSpace(rowComponents[1]), 10, 64)
	if posErr != nil {
		return
	}

	gene, registered := g.Registry.GeneAt(chrom, position)
	if !registered {
		return
	}

	ref := strings.TrimSpace(rowComponents[3])
	altAlleles := strings.Split(strings.TrimSpace(rowComponents[4]), ",")

	// locate GT and PS inside the FORMAT column
	formats := strings.Split(strings.TrimSpace(rowComponents[8]), ":")
	genotypePosition, phaseSetPosition := -1, -1
	for index, format := range formats {
		switch format {
		case "GT":
			genotypePosition = index
		case "PS":
			phaseSetPosition = index
		}
	}
	if genotypePosition == -1 {
		return
	}

	laneLocus := ""
	if g.Database.LanePosition(chrom, strconv.FormatInt(position, 10)) {
		laneLocus = fmt.Sprintf("%s:%d", chrom, position)
	}

	for columnIndex, sampleId := range scan.headerSampleIds {
		if columnIndex >= len(rowComponents) {
			continue
		}
		sampleValues := strings.Split(strings.TrimSpace(rowComponents[columnIndex]), ":")
		if genotypePosition >= len(sampleValues) {
			continue
		}
		gtString := sampleValues[genotypePosition]

		zygosity := z.FromGenotype(gtString)
		homRef := gtString == "0" || gtString == "0|0" || gtString == "0/0"

		phaseSet := phase.NoPhaseSet
		if phaseSetPosition != -1 && phaseSetPosition < len(sampleValues) {
			if value := strings.TrimSpace(sampleValues[phaseSetPosition]); value != "" {
				phaseSet = value
			}
		}
		phaseString := normalizePhase(gtString, zygosity)

		if laneLocus != "" {
			scan.markLaneSeen(sampleId, laneLocus)
			switch {
			case homRef || !z.IsKnown(zygosity):
				// the wild-type base sits on both copies
				scan.builderFor(sampleId, gene.Name).record(laneLocus+"_ref", z.Homozygous, phase.Homozygous, phase.NoPhaseSet)
			case zygosity == z.Heterozygous && strings.ContainsRune(gtString, '0'):
				// the wild-type base sits opposite the called alternate
				scan.builderFor(sampleId, gene.Name).record(laneLocus+"_ref", z.Heterozygous, oppositePhase(phaseString), phaseSet)
			}
			// homozygous alternate: the wild-type base is absent and
			// no pool entry is written
		}

		// homozygous-reference calls carry no allele evidence
		if !z.IsKnown(zygosity) || homRef {
			continue
		}

		for _, alleleIndex := range calledAltIndexes(gtString) {
			if alleleIndex > len(altAlleles) {
				continue
			}
			variantId := fmt.Sprintf("%s:%d_%s_%s", chrom, position, ref, altAlleles[alleleIndex-1])
			scan.builderFor(sampleId, gene.Name).record(variantId, zygosity, phaseString, phaseSet)
		}
	}
}

// addMissingLaneReferences backfills the wild-type covered positions
// the file never mentioned: for every gene a sample has evidence for,
// each uncalled lane position of its locus is reference on both copies
func (g *GenotypingService) addMissingLaneReferences(scan *vcfScan) {
	for sampleId, perGene := range scan.builders {
		for geneName, builder := range perGene {
			gene, registered := g.Registry.Gene(geneName)
			if !registered {
				continue
			}
			for _, position := range g.Database.LanePositions(gene.Chromosome) {
				locus := gene.Chromosome + ":" + position
				if scan.laneSeen(sampleId, locus) {
					continue
				}
				positionValue, parseErr := strconv.ParseInt(position, 10, 64)
				if parseErr != nil || !gene.Covers(gene.Chromosome, positionValue) {
					continue
				}
				builder.record(locus+"_ref", z.Homozygous, phase.Homozygous, phase.NoPhaseSet)
			}
		}
	}
}

// normalizePhase collapses a raw GT string to the phase sentinels the
// filters reason over: homozygous calls become "1/1" whatever their
// separator, haploid alternates become "1"
func normalizePhase(gtString string, zygosity constants.Zygosity) string {
	if !strings.Contains(gtString, "|") && !strings.Contains(gtString, "/") {
		return phase.Hemizygous
	}
	if zygosity == z.Homozygous {
		return phase.Homozygous
	}
	return gtString
}

// oppositePhase mirrors an ordered phase string onto the other
// chromosome copy; unordered phases carry no side to mirror
func oppositePhase(phaseString string) string {
	switch phaseString {
	case phase.OrderedLeft:
		return phase.OrderedRight
	case phase.OrderedRight:
		return phase.OrderedLeft
	}
	return phaseString
}

// calledAltIndexes lists the distinct non-reference allele indexes a
// GT string calls (1-based into the ALT column)
func calledAltIndexes(gtString string) []int {
	separator := "/"
	if strings.Contains(gtString, "|") {
		separator = "|"
	}

	seen := map[int]struct{}{}
	var indexes []int
	for _, field := range strings.Split(gtString, separator) {
		index, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || index < 1 {
			continue
		}
		if _, duplicate := seen[index]; duplicate {
			continue
		}
		seen[index] = struct{}{}
		indexes = append(indexes, index)
	}
	return indexes
}

// impliedCovered: "." placeholder entries count as observed without a
// VCF call. Wild-type "pos_ref" entries do not qualify: the scan
// materializes those into the pool whenever the position is covered,
// so their absence is real evidence
func impliedCovered(variant string) bool {
	return strings.HasSuffix(variant, ".")
}

// GenerateCandidates builds the initial candidate set for one
// (sample, gene): the raw allele universe restricted to alleles the
// observed pool fully supports, and every diploid combination of them
// (reference included) as pair hypotheses.
func (g *GenotypingService) GenerateCandidates(gene db.GeneConfig, sampleId string, ev *evidence.VariantEvidence) (*alleles.BloodGroup, error) {

	reference, ok := g.Database.ReferenceAllele(gene.Name)
	if !ok {
		return nil, fmt.Errorf("no reference allele definition for %s", gene.Name)
	}

	bg := alleles.NewBloodGroup(gene.Name, sampleId, gene.CoExisting, ev)

	var raw []*alleles.Allele
	for _, candidate := range g.Database.AllelesFor(gene.Name) {
		if alleleSupported(candidate, ev) {
			raw = append(raw, candidate)
		}
	}
	if !alleleInSlice(raw, reference) {
		raw = append(raw, reference)
	}
	bg.SetRaw(raw)

	var pairs []alleles.Pair
	for i := 0; i < len(raw); i++ {
		for j := i; j < len(raw); j++ {
			if i == j && !selfPairPossible(raw[i], ev) {
				continue
			}
			pairs = append(pairs, alleles.NewPair(raw[i], raw[j]))
		}
	}
	bg.SetPairs(alleleState.Normal, pairs)
	if gene.CoExisting {
		bg.SetPairs(alleleState.Co, pairs)
	}

	return bg, nil
}

func alleleSupported(candidate *alleles.Allele, ev *evidence.VariantEvidence) bool {
	for _, variant := range candidate.DefiningVariants() {
		if !ev.Observed(variant) && !impliedCovered(variant) {
			return false
		}
	}
	return true
}

// selfPairPossible: a same-allele hypothesis needs the allele on both
// copies, so every explicitly observed defining variant must be HOM
func selfPairPossible(candidate *alleles.Allele, ev *evidence.VariantEvidence) bool {
	for _, variant := range candidate.DefiningVariants() {
		if impliedCovered(variant) {
			continue
		}
		if !ev.IsHom(variant) {
			return false
		}
	}
	return true
}

func alleleInSlice(list []*alleles.Allele, allele *alleles.Allele) bool {
	for _, candidate := range list {
		if candidate.Equal(allele) {
			return true
		}
	}
	return false
}

// GenotypeSample generates candidates for every gene the sample has
// evidence for, runs the pruning pipeline across them, and bulk
// indexes one result document per gene.
func (g *GenotypingService) GenotypeSample(requestId string, sampleId string, geneEvidence map[string]*evidence.VariantEvidence, phased bool) (resolved int, failed int) {

	bloodGroups := map[string]*alleles.BloodGroup{}
	for geneName, ev := range geneEvidence {
		gene, registered := g.Registry.Gene(geneName)
		if !registered {
			continue
		}
		bg, err := g.GenerateCandidates(gene, sampleId, ev)
		if err != nil {
			fmt.Printf("[%s] - Candidate generation failed for %s %s : %s\n", time.Now(), sampleId, geneName, err)
			failed++
			continue
		}
		bloodGroups[geneName] = bg
	}

	failures := filtering.RunAcrossGenes(bloodGroups, phased, g.Database.ReferenceAlleles(), g.Config.Api.GeneProcessingConcurrencyLevel)

	var indexingWG sync.WaitGroup
	for geneName, bg := range bloodGroups {
		_, geneFailed := failures[geneName]
		document := g.buildGenotypeDocument(requestId, bg, phased, geneFailed)
		if geneFailed || document.Status == models.GenotypeStatusUnresolved {
			failed++
		} else {
			resolved++
		}

		documentJson, marshallErr := json.Marshal(document)
		if marshallErr != nil {
			fmt.Printf("[%s] - Cannot encode genotype document %s : %s\n", time.Now(), document.Id, marshallErr)
			continue
		}

		indexingWG.Add(1)
		addErr := g.BulkIndexer.Add(
			context.Background(),
			esutil.BulkIndexerItem{
				Action: "index",
				Body:   bytes.NewReader(documentJson),

				OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
					defer indexingWG.Done()
				},
				OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
					defer indexingWG.Done()
					if err != nil {
						fmt.Printf("ERROR: %s\n", err)
					} else {
						fmt.Printf("ERROR: %s: %s\n", res.Error.Type, res.Error.Reason)
					}
				},
			},
		)
		if addErr != nil {
			fmt.Printf("Unexpected error: %s\n", addErr)
			indexingWG.Done()
		}
	}
	indexingWG.Wait()

	return resolved, failed
}

func (g *GenotypingService) buildGenotypeDocument(requestId string, bg *alleles.BloodGroup, phased bool, geneFailed bool) models.GenotypeDocument {

	survivors := bg.Pairs(alleleState.Normal)

	status := models.GenotypeStatusAmbiguous
	switch {
	case geneFailed || len(survivors) == 0:
		status = models.GenotypeStatusUnresolved
	case len(survivors) == 1:
		status = models.GenotypeStatusResolved
	}

	var pairLabels []string
	bestWeight := 0
	for index, pair := range survivors {
		pairLabels = append(pairLabels, pair.String())
		if index == 0 || pair.WeightGeno() < bestWeight {
			bestWeight = pair.WeightGeno()
		}
	}

	var removals []models.RemovalRecord
	for _, filterName := range bg.LedgerFilterNames() {
		record := models.RemovalRecord{Filter: filterName}
		for _, pair := range bg.RemovedPairs(filterName) {
			record.Pairs = append(record.Pairs, pair.String())
		}
		for _, allele := range bg.RemovedAlleles(filterName) {
			record.Alleles = append(record.Alleles, allele.Genotype())
		}
		removals = append(removals, record)
	}

	return models.GenotypeDocument{
		Id:        uuid.New().String(),
		RequestId: requestId,
		SampleId:  bg.Sample,
		Gene:      bg.Type,
		Phased:    phased,
		Status:    status,
		Pairs:     pairLabels,
		Weight:    bestWeight,
		Removals:  removals,
		CreatedAt: time.Now().Format(time.RFC3339),
	}
}
