package sanitation

import (
	"fmt"
	"time"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/go-co-op/gocron"

	"hemotype/api/models"
	"hemotype/api/models/ingest"
	esRepo "hemotype/api/repositories/elasticsearch"
	"hemotype/api/services"
)

type (
	SanitationService struct {
		Initialized       bool
		Es7Client         *es7.Client
		Config            *models.Config
		GenotypingService *services.GenotypingService
	}
)

func NewSanitationService(es *es7.Client, cfg *models.Config, gz *services.GenotypingService) *SanitationService {
	ss := &SanitationService{
		Initialized:       false,
		Es7Client:         es,
		Config:            cfg,
		GenotypingService: gz,
	}

	ss.Init()

	return ss
}

func (ss *SanitationService) Init() {
	// initialization if necessary
	if !ss.Initialized {
		// - spin up a go routine that will periodically clear out
		//   genotyping requests that finished long ago, along with
		//   the result documents they indexed
		go func() {
			// setup cron job
			s := gocron.NewScheduler(time.UTC)

			s.Every(1).Days().At("04:00:00").Do(func() { // 12am EST
				fmt.Printf("[%s] - Running genotyping request cleanup..\n", time.Now())
				ss.PurgeStaleRequests(time.Now())
			})

			// starts the scheduler in blocking mode, which blocks
			// the current execution path
			s.StartBlocking()
		}()

		ss.Initialized = true
		fmt.Println("Sanitation Service Initialized ..")
	}
}

// PurgeStaleRequests drops finished or failed requests whose last
// update is older than the configured retention window, and deletes
// the genotype documents those requests produced
func (ss *SanitationService) PurgeStaleRequests(now time.Time) {
	retentionDays := ss.Config.Api.RequestSanitationAfterDays
	if retentionDays < 1 {
		retentionDays = 7
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	gz := ss.GenotypingService
	gz.RequestMapMux.Lock()
	defer gz.RequestMapMux.Unlock()

	for id, request := range gz.RequestMap {
		if request.State != ingest.Done && request.State != ingest.Error {
			continue
		}
		updatedAt, parseErr := time.Parse(time.RFC3339, request.UpdatedAt)
		if parseErr != nil {
			// legacy entries carry time.Time.String() timestamps
			updatedAt, parseErr = time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", request.UpdatedAt)
		}
		if parseErr != nil || updatedAt.After(cutoff) {
			continue
		}

		fmt.Printf("[%s] - Purging stale genotyping request %s (%s)..\n", time.Now(), id, request.Filename)
		if err := esRepo.DeleteGenotypesByRequestId(ss.Config, ss.Es7Client, id); err != nil {
			fmt.Printf("[%s] - Error purging documents for request %s : %v..\n", time.Now(), id, err)
			continue
		}
		delete(gz.RequestMap, id)
	}
}
