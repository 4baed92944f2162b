package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pokerops/tourneytrack/pkg/api"
	"github.com/pokerops/tourneytrack/pkg/config"
	"github.com/pokerops/tourneytrack/pkg/export"
	"github.com/pokerops/tourneytrack/pkg/models"
	"github.com/pokerops/tourneytrack/pkg/parse"
	"github.com/pokerops/tourneytrack/pkg/policy"
	"github.com/pokerops/tourneytrack/pkg/storage"
	"github.com/pokerops/tourneytrack/pkg/tracker"
	"github.com/pokerops/tourneytrack/pkg/utils"
)

const version = "0.4.1"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "list-venues":
		runListVenues(os.Args[2:])
	case "seed":
		runSeed(os.Args[2:])
	case "export":
		runExport(os.Args[2:])
	case "version":
		fmt.Printf("tourneytrack %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `tourneytrack - Poker tournament scraping admin console

Usage:
  tourneytrack <command> [options]

Commands:
  serve        Start the admin console (refresh loop + HTTP API)
  validate     Validate configuration file
  list-venues  List configured venue keys
  seed         Seed the store with fake tracked games for local development
  export       Export saved tournament records to an Excel file
  version      Show version info

Run 'tourneytrack <command> -h' for command-specific help.`)
}

// setupLogger builds the process logger at the requested level
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// loadValidatedConfig loads the config file and applies validation defaults,
// logging any warnings.
func loadValidatedConfig(path string, log *logrus.Logger) (*config.AppConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	warnings, validateErr := cfg.Validate()
	for _, w := range warnings {
		log.Warnf("Config: %s", w)
	}
	if validateErr != nil {
		return nil, validateErr
	}
	return cfg, nil
}

// runServe starts the refresh loop, config watcher, GC loop and HTTP API
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")
	watchConfig := fs.Bool("watch-config", true, "Reload config on file change")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tourneytrack serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)

	if *pprofAddr != "" {
		go func() {
			log.Infof("pprof listening on %s", *pprofAddr)
			if err := http.ListenAndServe(*pprofAddr, nil); err != nil {
				log.Warnf("pprof listener failed: %v", err)
			}
		}()
	}

	cfg, err := loadValidatedConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Failed loading config: %v (%s)", err, utils.CategorizeError(err))
	}

	store, err := storage.NewBadgerStore(cfg.StateDir, log.WithField("component", "storage"))
	if err != nil {
		log.Fatalf("Failed opening store: %v (%s)", err, utils.CategorizeError(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Infof("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go store.RunGC(ctx, cfg.GCInterval)

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	checker := policy.NewChecker(httpClient, cfg, log.WithField("component", "policy"))
	tr := tracker.New(store, checker, *cfg, log)
	exporter := export.NewExporter(store, log)
	refetcher := parse.NewRefetcher(*cfg, store, log)

	if *watchConfig {
		go func() {
			watchErr := config.Watch(ctx, *configFile, log.WithField("component", "config"), func(next *config.AppConfig) {
				checker.SetConfig(next)
				tr.SetConfig(*next)
				log.Info("Config reloaded")
			})
			if watchErr != nil && ctx.Err() == nil {
				log.Warnf("Config watcher stopped: %v", watchErr)
			}
		}()
	}

	go func() {
		if runErr := tr.Run(ctx); runErr != nil {
			log.Errorf("Tracker loop failed: %v", runErr)
			cancel()
		}
	}()

	server := api.NewServer(store, tr, exporter, refetcher, *cfg, log)
	if serveErr := server.Run(ctx); serveErr != nil {
		log.Fatalf("Admin API failed: %v", serveErr)
	}
	log.Info("Shutdown complete")
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tourneytrack validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, validateErr := cfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if validateErr != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", validateErr)
		return 1
	}

	keys := venueKeys(cfg)
	for _, key := range keys {
		fmt.Fprintf(stdout, "OK: [%s]\n", key)
	}
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// runListVenues handles the list-venues subcommand
func runListVenues(args []string) {
	fs := flag.NewFlagSet("list-venues", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tourneytrack list-venues [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, key := range venueKeys(cfg) {
		venue := cfg.Venues[key]
		excluded, explicit := config.GetEffectiveDoNotScrape(venue)
		marker := ""
		if explicit && excluded {
			marker = " (do-not-scrape)"
		}
		fmt.Printf("%s\t%s%s\n", key, venue.BaseURL, marker)
	}
}

func venueKeys(cfg *config.AppConfig) []string {
	keys := make([]string, 0, len(cfg.Venues))
	for k := range cfg.Venues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// runSeed fills the store with fake tracked games so the console has
// something to show during local development.
func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	count := fs.Int("count", 25, "Number of fake games to seed")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	logLevel := fs.String("loglevel", "info", "Log level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tourneytrack seed [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	cfg, err := loadValidatedConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Failed loading config: %v", err)
	}

	store, err := storage.NewBadgerStore(cfg.StateDir, log.WithField("component", "storage"))
	if err != nil {
		log.Fatalf("Failed opening store: %v", err)
	}
	defer store.Close()

	faker := gofakeit.New(*seed)
	keys := venueKeys(cfg)
	if len(keys) == 0 {
		log.Fatal("No venues configured, nothing to seed against")
	}

	for i := 0; i < *count; i++ {
		venueKey := keys[faker.Number(0, len(keys)-1)]
		venue := cfg.Venues[venueKey]
		eventNumber := faker.Number(1, 80)

		game := &models.TrackedGame{
			ID:          uuid.NewString(),
			VenueKey:    venueKey,
			EventNumber: eventNumber,
			URL:         venue.BuildGameURL(eventNumber),
			TrackedAt:   time.Now().UTC(),
			Processing:  seededProcessing(faker),
		}
		if err := store.PutGame(game); err != nil {
			log.Fatalf("Failed seeding game: %v", err)
		}
	}
	log.Infof("Seeded %d fake tracked games", *count)
}

// seededProcessing fabricates a plausible backend processing record covering
// the interesting status shapes.
func seededProcessing(faker *gofakeit.Faker) models.ProcessingRecord {
	payload := &models.ParsedPayload{
		GameStatus:     models.GameStatusScheduled,
		Name:           fmt.Sprintf("%s %s Event", faker.City(), faker.Word()),
		GameType:       faker.RandomString([]string{"NLHE", "PLO", "Mixed"}),
		BuyInCents:     int64(faker.Number(50, 25000)) * 100,
		StartTime:      faker.DateRange(time.Now(), time.Now().AddDate(0, 2, 0)).UTC(),
		Entrants:       faker.Number(0, 5000),
		PrizePoolCents: int64(faker.Number(0, 5000000)) * 100,
	}

	switch faker.Number(0, 5) {
	case 0:
		return models.ProcessingRecord{
			OverallStatus: models.OverallStatusPending,
			Message:       "Queued for scraping",
		}
	case 1:
		payload.GameStatus = models.GameStatusNotFound
		return models.ProcessingRecord{
			OverallStatus: models.OverallStatusSuccess,
			Message:       "NOT_FOUND placeholder saved",
			DataSource:    models.DataSourceWeb,
			ParsedPayload: payload,
			SaveResult:    &models.SaveResult{Action: models.SaveActionCreate, RecordID: uuid.NewString()},
		}
	case 2:
		return models.ProcessingRecord{
			OverallStatus: models.OverallStatusError,
			Message:       "fetch timeout contacting venue",
			DataSource:    models.DataSourceNone,
		}
	case 3:
		return models.ProcessingRecord{
			OverallStatus: models.OverallStatusReview,
			Message:       "Awaiting operator confirmation",
			DataSource:    models.DataSourceWeb,
			ParsedPayload: payload,
		}
	case 4:
		return models.ProcessingRecord{
			OverallStatus: models.OverallStatusSkipped,
			Message:       "Do not scrape",
			DataSource:    models.DataSourceNone,
		}
	default:
		payload.GameStatus = models.GameStatusRunning
		return models.ProcessingRecord{
			OverallStatus: models.OverallStatusSuccess,
			Message:       "Saved",
			DataSource:    models.DataSourceS3,
			ParsedPayload: payload,
			SaveResult:    &models.SaveResult{Action: models.SaveActionUpdate, RecordID: uuid.NewString()},
		}
	}
}

// runExport writes saved tournament records to an Excel file
func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	outDir := fs.String("out", "", "Output directory (default: export_dir from config)")
	logLevel := fs.String("loglevel", "info", "Log level")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tourneytrack export [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	log := setupLogger(*logLevel)
	cfg, err := loadValidatedConfig(*configFile, log)
	if err != nil {
		log.Fatalf("Failed loading config: %v", err)
	}

	store, err := storage.NewBadgerStore(cfg.StateDir, log.WithField("component", "storage"))
	if err != nil {
		log.Fatalf("Failed opening store: %v", err)
	}
	defer store.Close()

	dir := *outDir
	if dir == "" {
		dir = cfg.ExportDir
	}

	exporter := export.NewExporter(store, log)
	path, count, exportErr := exporter.ExportToFile(dir)
	if exportErr != nil {
		log.Fatalf("Export failed: %v (%s)", exportErr, utils.CategorizeError(exportErr))
	}
	fmt.Printf("Exported %d records to %s\n", count, path)
}
