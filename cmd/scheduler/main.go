package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/pizzafeed/importer/internal/config"
	"github.com/pizzafeed/importer/internal/importer"
	"github.com/pizzafeed/importer/internal/models"
	"github.com/pizzafeed/importer/internal/source"
	"github.com/pizzafeed/importer/internal/source/imgflip"
	"github.com/pizzafeed/importer/internal/source/imgur"
	"github.com/pizzafeed/importer/internal/source/ninegag"
	"github.com/pizzafeed/importer/internal/source/pexels"
	"github.com/pizzafeed/importer/internal/source/reddit"
	"github.com/pizzafeed/importer/internal/source/rss"
	"github.com/pizzafeed/importer/internal/source/tiktok"
	"github.com/pizzafeed/importer/internal/source/youtube"
	"github.com/pizzafeed/importer/internal/storage"
	"github.com/pizzafeed/importer/internal/storage/sqlite"
	"github.com/pizzafeed/importer/pkg/logger"
	"github.com/pizzafeed/importer/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pizza-scheduler",
		Short: "Background scheduler for the pizza content importer",
		Long: `Runs scheduled imports for every enabled source in the background.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting pizza importer scheduler")

	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Start health check server
	go startHealthServer()

	imp := importer.New(repo, importer.Options{
		SourcePause:   time.Duration(cfg.Import.SourcePauseSeconds) * time.Second,
		StaleAfter:    time.Duration(cfg.Import.StaleRunMinutes) * time.Minute,
		DefaultStatus: models.ContentStatus(cfg.Import.DefaultStatus),
	}, log)

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	_, err = c.AddFunc(cfg.Scheduler.ImportCron, func() {
		ctx := context.Background()
		log.Info().Msg("Running scheduled import")

		sources, err := buildSources(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to build sources")
			return
		}

		summaries, err := imp.RunAll(ctx, sources)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled import finished with failures")
		}

		imported, errored := 0, 0
		for _, s := range summaries {
			imported += s.ItemsImported
			errored += s.ItemsErrored
		}
		log.Info().
			Int("sources", len(summaries)).
			Int("imported", imported).
			Int("errors", errored).
			Msg("Scheduled import completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule import job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.ImportCron).Msg("Import job scheduled")

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()

	return nil
}

// buildSources constructs every enabled source whose ImportSource row is
// still active
func buildSources(ctx context.Context) ([]source.Source, error) {
	limiter := ratelimit.NewMultiLimiter()
	limiter.Add(string(models.PlatformReddit), cfg.Sources.Reddit.RequestsPerMinute)
	limiter.Add(string(models.PlatformImgur), cfg.Sources.Imgur.RequestsPerMinute)
	limiter.Add(string(models.PlatformPexels), cfg.Sources.Pexels.RequestsPerMinute)
	limiter.Add(string(models.PlatformImgflip), cfg.Sources.Imgflip.RequestsPerMinute)
	limiter.Add(string(models.PlatformYouTube), cfg.Sources.YouTube.RequestsPerMinute)
	limiter.Add(string(models.PlatformNineGag), cfg.Sources.NineGag.RequestsPerMinute)
	limiter.Add(string(models.PlatformTikTok), cfg.Sources.TikTok.RequestsPerMinute)
	limiter.Add(string(models.PlatformRSS), cfg.Sources.RSS.RequestsPerMinute)

	client := source.NewClient(
		limiter,
		time.Duration(cfg.Import.HTTPTimeoutSeconds)*time.Second,
		cfg.Import.MaxRetries,
		time.Duration(cfg.Import.RetryBaseDelayMS)*time.Millisecond,
	)

	var sources []source.Source
	if cfg.Sources.Reddit.Enabled {
		for _, src := range reddit.NewMultiple(cfg.Sources.Reddit, client, log) {
			sources = append(sources, src)
		}
	}
	if cfg.Sources.Imgur.Enabled && cfg.Sources.Imgur.ClientID != "" {
		sources = append(sources, imgur.New(cfg.Sources.Imgur, client, log))
	}
	if cfg.Sources.Pexels.Enabled && cfg.Sources.Pexels.APIKey != "" {
		sources = append(sources, pexels.New(cfg.Sources.Pexels, client, log))
	}
	if cfg.Sources.Imgflip.Enabled {
		sources = append(sources, imgflip.New(cfg.Sources.Imgflip, client, log))
	}
	if cfg.Sources.YouTube.Enabled && cfg.Sources.YouTube.APIKey != "" {
		src, err := youtube.New(ctx, cfg.Sources.YouTube, client, log)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping youtube source")
		} else {
			sources = append(sources, src)
		}
	}
	if cfg.Sources.NineGag.Enabled {
		sources = append(sources, ninegag.New(cfg.Sources.NineGag, client, log))
	}
	if cfg.Sources.TikTok.Enabled {
		sources = append(sources, tiktok.New(cfg.Sources.TikTok, client, log))
	}
	if cfg.Sources.RSS.Enabled {
		for _, src := range rss.NewMultiple(cfg.Sources.RSS, client, log) {
			sources = append(sources, src)
		}
	}

	// Honor operator-disabled sources
	active := make([]source.Source, 0, len(sources))
	for _, src := range sources {
		record, err := repo.GetImportSourceByName(ctx, src.Name())
		if err != nil {
			return nil, err
		}
		if record != nil && !record.Active {
			continue
		}
		if record == nil {
			if err := repo.SaveImportSource(ctx, &models.ImportSource{
				Name:     src.Name(),
				Platform: src.Platform(),
				Active:   true,
			}); err != nil {
				return nil, err
			}
		}
		active = append(active, src)
	}

	return active, nil
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}

// startHealthServer starts a simple HTTP server for health checks
func startHealthServer() {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Scheduler.HealthPort
	}

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	log.Info().Str("port", port).Msg("Health check server starting")
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Error().Err(err).Msg("Health server failed")
	}
}
