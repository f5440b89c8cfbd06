package main

import (
	"hemotype/api/contexts"
	"hemotype/api/db"
	gam "hemotype/api/middleware"
	"hemotype/api/models"
	"hemotype/api/mvc"
	"hemotype/api/services"
	"hemotype/api/services/sanitation"
	"hemotype/api/utils"
	"time"

	"fmt"
	"net/http"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
)

func main() {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	fmt.Printf("Using : \n"+

		"\tDebug : %t \n\n"+

		"\tVCF Directory Path : %s \n"+
		"\tAllele Database Path : %s \n"+
		"\tGene Registry Path : %s \n"+
		"\tAssembly : %s \n"+
		"\tBulk Indexing Cap : %d\n"+
		"\tFile Processing Concurrency Level : %d\n"+
		"\tGene Processing Concurrency Level : %d\n"+
		"\tElasticsearch Url : %s \n"+
		"\tElasticsearch Username : %s\n\n"+

		"Running on Port : %s\n",

		cfg.Debug,
		cfg.Api.VcfPath,
		cfg.Api.AlleleDbPath,
		cfg.Api.GeneRegistryPath,
		cfg.Api.Assembly,
		cfg.Api.BulkIndexingCap,
		cfg.Api.FileProcessingConcurrencyLevel,
		cfg.Api.GeneProcessingConcurrencyLevel,
		cfg.Elasticsearch.Url, cfg.Elasticsearch.Username,
		cfg.Api.Port)
	// --

	// Reference data
	registry, err := db.LoadRegistry(cfg.Api.GeneRegistryPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	database, err := db.Load(cfg.Api.AlleleDbPath, cfg.Api.Assembly)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	// Instantiate Server
	e := echo.New()

	// Service Connections:
	// -- Elasticsearch
	es := utils.CreateEsConnection(&cfg)

	// Service Singletons
	gz := services.NewGenotypingService(es, &cfg, database, registry)
	sanitation.NewSanitationService(es, &cfg, gz)

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))

	// -- Override handlers with "custom Hemotype" context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.HemotypeContext{
				Context:           c,
				Es7Client:         es,
				Config:            &cfg,
				GenotypingService: gz,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", func(c echo.Context) error {
		fmt.Printf("[%s] - Root hit!\n", time.Now())
		return c.JSON(http.StatusOK, "Welcome to the Hemotype blood-group genotyping service!")
	})

	// -- Genotypes
	e.GET("/genotypes/overview", mvc.GetGenotypesOverview)

	e.GET("/genotypes/get/by/sampleId", mvc.GenotypesGetBySampleIds,
		// middleware
		gam.CalibrateOptionalSampleIdsPluralAttribute,
		gam.ValidateOptionalGeneAttribute)
	e.GET("/genotypes/unresolved", mvc.GetUnresolvedGenotypes)

	e.GET("/genotypes/ingestion/run", mvc.GenotypesIngest,
		// middleware
		gam.CalibrateOptionalPhasedAttribute)
	e.GET("/genotypes/ingestion/requests", mvc.GetAllGenotypeIngestionRequests)

	// Run
	e.Logger.Fatal(e.Start(":" + cfg.Api.Port))
}
