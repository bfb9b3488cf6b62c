package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"maps-scraper/adapters"
	"maps-scraper/engine"
	"maps-scraper/internal/types"
	"maps-scraper/store"
	"maps-scraper/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	var (
		configFlag    = flag.String("config", "", "YAML settings file")
		countryFlag   = flag.String("country", "", "Country appended to every search")
		citiesFlag    = flag.String("cities", "", "Comma-separated list of cities")
		citiesFile    = flag.String("cities-file", "", "File with one city per line")
		queriesFlag   = flag.String("queries", "", "Comma-separated list of search queries")
		providersFlag = flag.String("providers", "", "Comma-separated providers in priority order (google, yandex); default all")
		outputFlag    = flag.String("output", "places.csv", "Output file path")
		formatFlag    = flag.String("format", "", "Output format: csv, json or xlsx (default: from output extension)")
		resumeFlag    = flag.String("resume", "", "CSV dataset from a previous run to continue")
		redisAddr     = flag.String("redis-addr", "", "Also keep the dataset in Redis at this address")
		redisKey      = flag.String("redis-key", "maps-scraper:places", "Redis key for the dataset")
		verbose       = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logger := utils.NewLogger(*verbose)
	log := logger.WithField("run_id", uuid.New().String())

	config, err := types.LoadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	cities, err := readCities(*citiesFlag, *citiesFile)
	if err != nil {
		log.Fatalf("Failed to read cities: %v", err)
	}
	queries := splitList(*queriesFlag)
	if len(cities) == 0 || len(queries) == 0 {
		log.Fatal("At least one city (--cities or --cities-file) and one query (--queries) are required")
	}

	providers, err := adapters.ParseProviders(*providersFlag)
	if err != nil {
		log.Fatalf("Invalid providers: %v", err)
	}

	browserPath, err := utils.ResolveBrowserPath(config)
	if err != nil {
		log.Fatalf("Browser check failed: %v", err)
	}
	log.Debugf("Using browser %s", browserPath)

	sink, closeSinks := buildSink(log, *outputFlag, *formatFlag, *redisAddr, *redisKey)
	defer closeSinks()

	eng := engine.New(config, log, providers, func(provider string) (types.ProviderAdapter, error) {
		return adapters.NewAdapter(provider, config, log)
	}, sink)

	if *resumeFlag != "" {
		records, err := store.LoadCSV(*resumeFlag)
		if err != nil {
			log.Fatalf("Failed to load previous dataset: %v", err)
		}
		eng.Seed(records)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting run: providers=%v, %d cities, queries=%v, country=%q", providers, len(cities), queries, *countryFlag)
	result, err := eng.Run(ctx, engine.Job{
		Cities:  cities,
		Queries: queries,
		Country: *countryFlag,
	})
	if err != nil {
		log.Errorf("Run failed: %v", err)
		stop()
		closeSinks()
		os.Exit(1)
	}

	// Print summary
	if result.Interrupted {
		log.Infof("Run interrupted, partial results saved")
	}
	log.Infof("Results written to: %s", *outputFlag)
	log.Infof("Total places: %d (%d from previous run)", len(result.Records), result.Seeded)
	log.Infof("New places: %d, duplicates: %d, failed: %d, skipped: %d, checkpoints: %d",
		result.Accepted, result.Duplicates, result.Failed, result.Skipped, result.Checkpoints)
}

// buildSink creates the file sink and, when requested, the Redis sink. The
// returned func closes whatever needs closing and is safe to call twice.
func buildSink(log *logrus.Entry, output, format, redisAddr, redisKey string) (store.Sink, func()) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(output)), ".")
		if format == "" {
			format = store.FormatCSV
		}
	}
	fileSink, err := store.NewSink(format, output)
	if err != nil {
		log.Fatalf("Invalid output: %v", err)
	}
	if redisAddr == "" {
		return fileSink, func() {}
	}

	redisSink := store.NewRedisSink(redisAddr, 0, redisKey)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisSink.Ping(ctx); err != nil {
		redisSink.Close()
		log.Fatalf("Redis check failed: %v", err)
	}

	closed := false
	return store.MultiSink{fileSink, redisSink}, func() {
		if !closed {
			closed = true
			redisSink.Close()
		}
	}
}
