package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

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
		Use:   "pizza-importer",
		Short: "Multi-source pizza content import pipeline",
		Long: `Imports pizza-themed media (gifs, memes, videos, music, photos, art)
from third-party platforms into the content store, with deduplication,
rate limiting and per-run accounting.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(contentCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
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

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// newLimiter registers one limiter per platform from the configured windows
func newLimiter() *ratelimit.MultiLimiter {
	limiter := ratelimit.NewMultiLimiter()
	limiter.Add(string(models.PlatformReddit), cfg.Sources.Reddit.RequestsPerMinute)
	limiter.Add(string(models.PlatformImgur), cfg.Sources.Imgur.RequestsPerMinute)
	limiter.Add(string(models.PlatformPexels), cfg.Sources.Pexels.RequestsPerMinute)
	limiter.Add(string(models.PlatformImgflip), cfg.Sources.Imgflip.RequestsPerMinute)
	limiter.Add(string(models.PlatformYouTube), cfg.Sources.YouTube.RequestsPerMinute)
	limiter.Add(string(models.PlatformNineGag), cfg.Sources.NineGag.RequestsPerMinute)
	limiter.Add(string(models.PlatformTikTok), cfg.Sources.TikTok.RequestsPerMinute)
	limiter.Add(string(models.PlatformRSS), cfg.Sources.RSS.RequestsPerMinute)
	return limiter
}

func newFetchClient(limiter *ratelimit.MultiLimiter) *source.Client {
	return source.NewClient(
		limiter,
		time.Duration(cfg.Import.HTTPTimeoutSeconds)*time.Second,
		cfg.Import.MaxRetries,
		time.Duration(cfg.Import.RetryBaseDelayMS)*time.Millisecond,
	)
}

func newImporter(dryRun bool) *importer.Importer {
	return importer.New(repo, importer.Options{
		DryRun:        dryRun,
		SourcePause:   time.Duration(cfg.Import.SourcePauseSeconds) * time.Second,
		StaleAfter:    time.Duration(cfg.Import.StaleRunMinutes) * time.Minute,
		DefaultStatus: models.ContentStatus(cfg.Import.DefaultStatus),
	}, log)
}

// buildSources constructs every enabled source for the requested platform,
// or all enabled sources when platform is empty. Missing credentials fail
// here, before any run log exists.
func buildSources(ctx context.Context, platform string) ([]source.Source, error) {
	limiter := newLimiter()
	client := newFetchClient(limiter)
	var sources []source.Source

	want := func(p string, enabled bool) bool {
		if platform != "" {
			return platform == p
		}
		return enabled
	}

	if want("reddit", cfg.Sources.Reddit.Enabled) {
		for _, src := range reddit.NewMultiple(cfg.Sources.Reddit, client, log) {
			sources = append(sources, src)
		}
	}
	if want("imgur", cfg.Sources.Imgur.Enabled) {
		if err := cfg.ValidateSource("imgur"); err != nil {
			return nil, err
		}
		sources = append(sources, imgur.New(cfg.Sources.Imgur, client, log))
	}
	if want("pexels", cfg.Sources.Pexels.Enabled) {
		if err := cfg.ValidateSource("pexels"); err != nil {
			return nil, err
		}
		sources = append(sources, pexels.New(cfg.Sources.Pexels, client, log))
	}
	if want("imgflip", cfg.Sources.Imgflip.Enabled) {
		sources = append(sources, imgflip.New(cfg.Sources.Imgflip, client, log))
	}
	if want("youtube", cfg.Sources.YouTube.Enabled) {
		if err := cfg.ValidateSource("youtube"); err != nil {
			return nil, err
		}
		src, err := youtube.New(ctx, cfg.Sources.YouTube, client, log)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	if want("9gag", cfg.Sources.NineGag.Enabled) {
		sources = append(sources, ninegag.New(cfg.Sources.NineGag, client, log))
	}
	if want("tiktok", cfg.Sources.TikTok.Enabled) {
		sources = append(sources, tiktok.New(cfg.Sources.TikTok, client, log))
	}
	if want("rss", cfg.Sources.RSS.Enabled) {
		if err := cfg.ValidateSource("rss"); err != nil {
			return nil, err
		}
		for _, src := range rss.NewMultiple(cfg.Sources.RSS, client, log) {
			sources = append(sources, src)
		}
	}

	if len(sources) == 0 {
		if platform != "" {
			return nil, fmt.Errorf("unknown or unconfigured source: %s", platform)
		}
		return nil, fmt.Errorf("no sources enabled in configuration")
	}
	return sources, nil
}

// syncImportSources makes sure every built source has an ImportSource row,
// without touching operator-set active flags on existing rows, and filters
// out sources an operator has disabled.
func syncImportSources(ctx context.Context, sources []source.Source) ([]source.Source, error) {
	active := make([]source.Source, 0, len(sources))
	for _, src := range sources {
		existing, err := repo.GetImportSourceByName(ctx, src.Name())
		if err != nil {
			return nil, err
		}
		if existing == nil {
			record := &models.ImportSource{
				Name:     src.Name(),
				Platform: src.Platform(),
				Active:   true,
			}
			if parts := strings.SplitN(src.Name(), "/", 2); len(parts) == 2 {
				record.Identifier = parts[1]
			}
			if err := repo.SaveImportSource(ctx, record); err != nil {
				return nil, err
			}
			active = append(active, src)
			continue
		}
		if existing.Active {
			active = append(active, src)
		} else {
			log.Info().Str("source", src.Name()).Msg("Skipping disabled source")
		}
	}
	return active, nil
}

// ============ IMPORT COMMANDS ============

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Content import commands",
	}

	cmd.AddCommand(importRunCmd())
	cmd.AddCommand(importAllCmd())
	return cmd
}

func importRunCmd() *cobra.Command {
	var (
		platform   string
		subreddit  string
		subreddits string
		query      string
		limit      int
		sortOrder  string
		timeRange  string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an import for one platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			applyOverrides(subreddit, subreddits, query, limit, sortOrder, timeRange)

			sources, err := buildSources(ctx, platform)
			if err != nil {
				return err
			}
			sources, err = syncImportSources(ctx, sources)
			if err != nil {
				return err
			}

			imp := newImporter(dryRun)
			summaries, err := imp.RunAll(ctx, sources)
			printSummaries(summaries)
			return err
		},
	}

	cmd.Flags().StringVar(&platform, "source", "", "Platform to import from (reddit, imgur, pexels, imgflip, youtube, 9gag, tiktok, rss)")
	cmd.Flags().StringVar(&subreddit, "subreddit", "", "Single subreddit (reddit only)")
	cmd.Flags().StringVar(&subreddits, "subreddits", "", "Comma-separated subreddits (reddit only)")
	cmd.Flags().StringVar(&query, "query", "", "Search query override (imgur, pexels, youtube)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max items to fetch (overrides config)")
	cmd.Flags().StringVar(&sortOrder, "sort", "", "Listing sort: hot|new|top|rising (reddit only)")
	cmd.Flags().StringVar(&timeRange, "time", "", "Time range for top sort: hour|day|week|month|year|all (reddit only)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the import without writing anything")
	cmd.MarkFlagRequired("source")

	return cmd
}

func importAllCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Run imports for every enabled platform sequentially",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sources, err := buildSources(ctx, "")
			if err != nil {
				return err
			}
			sources, err = syncImportSources(ctx, sources)
			if err != nil {
				return err
			}

			imp := newImporter(dryRun)
			summaries, err := imp.RunAll(ctx, sources)
			printSummaries(summaries)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview the import without writing anything")
	return cmd
}

// applyOverrides folds CLI flags into the loaded config before sources are
// built, so every platform sees one consistent configuration
func applyOverrides(subreddit, subreddits, query string, limit int, sortOrder, timeRange string) {
	if subreddit != "" {
		cfg.Sources.Reddit.Subreddits = []string{subreddit}
	}
	if subreddits != "" {
		cfg.Sources.Reddit.Subreddits = strings.Split(subreddits, ",")
	}
	if query != "" {
		cfg.Sources.Imgur.Query = query
		cfg.Sources.Pexels.Query = query
		cfg.Sources.YouTube.Query = query
	}
	if limit > 0 {
		cfg.Sources.Reddit.Limit = limit
		cfg.Sources.Imgur.Limit = limit
		cfg.Sources.Pexels.PerPage = limit
		cfg.Sources.Imgflip.Limit = limit
		cfg.Sources.YouTube.MaxResults = limit
		cfg.Sources.NineGag.Limit = limit
		cfg.Sources.TikTok.Limit = limit
	}
	if sortOrder != "" {
		cfg.Sources.Reddit.Sort = sortOrder
	}
	if timeRange != "" {
		cfg.Sources.Reddit.TimeRange = timeRange
	}
}

func printSummaries(summaries []*importer.RunSummary) {
	if len(summaries) == 0 {
		return
	}

	totalFound, totalImported, totalFiltered, totalDuplicate, totalErrored := 0, 0, 0, 0, 0

	fmt.Printf("\n=== Import Results ===\n")
	for _, s := range summaries {
		label := ""
		if s.DryRun {
			label = " [DRY RUN]"
		}
		fmt.Printf("\n%s (%s)%s: %s\n", s.SourceName, s.Platform, label, s.Status)
		fmt.Printf("  Found:               %d\n", s.ItemsFound)
		fmt.Printf("  Imported:            %d\n", s.ItemsImported)
		fmt.Printf("  Skipped (filtered):  %d\n", s.SkippedFiltered)
		fmt.Printf("  Skipped (duplicate): %d\n", s.SkippedDuplicate)
		fmt.Printf("  Errors:              %d\n", s.ItemsErrored)
		fmt.Printf("  Duration:            %s\n", s.Duration.Round(time.Millisecond))

		totalFound += s.ItemsFound
		totalImported += s.ItemsImported
		totalFiltered += s.SkippedFiltered
		totalDuplicate += s.SkippedDuplicate
		totalErrored += s.ItemsErrored
	}

	if len(summaries) > 1 {
		fmt.Printf("\nTotals: found=%d imported=%d filtered=%d duplicate=%d errors=%d\n",
			totalFound, totalImported, totalFiltered, totalDuplicate, totalErrored)
	}
	if summaries[0].DryRun {
		fmt.Printf("\nDRY RUN: nothing was written to the content store.\n")
	}
}

// ============ SOURCES COMMANDS ============

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Import source management",
	}

	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesToggleCmd("enable", true))
	cmd.AddCommand(sourcesToggleCmd("disable", false))
	return cmd
}

func sourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured import sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sources, err := repo.GetImportSources(ctx)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Println("No import sources recorded yet. Run an import first.")
				return nil
			}

			fmt.Printf("%-30s %-10s %-8s %s\n", "NAME", "PLATFORM", "ACTIVE", "LAST FETCH")
			for _, s := range sources {
				lastFetch := "never"
				if s.LastFetchAt != nil {
					lastFetch = s.LastFetchAt.Format(time.RFC3339)
				}
				fmt.Printf("%-30s %-10s %-8t %s\n", s.Name, s.Platform, s.Active, lastFetch)
			}
			return nil
		},
	}
}

func sourcesToggleCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " NAME",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " an import source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if err := repo.SetImportSourceActive(ctx, args[0], active); err != nil {
				return err
			}
			fmt.Printf("Source %s %sd\n", args[0], verb)
			return nil
		},
	}
}

// ============ RUNS COMMANDS ============

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Import run log commands",
	}

	cmd.AddCommand(runsListCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var sourceName string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent import runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			filter := storage.RunLogFilter{Limit: limit}
			if sourceName != "" {
				filter.SourceName = &sourceName
			}

			runs, err := repo.ListRunLogs(ctx, filter)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No import runs recorded.")
				return nil
			}

			fmt.Printf("%-5s %-30s %-10s %6s %6s %6s %6s  %s\n",
				"ID", "SOURCE", "STATUS", "FOUND", "IMP", "SKIP", "ERR", "STARTED")
			for _, r := range runs {
				fmt.Printf("%-5d %-30s %-10s %6d %6d %6d %6d  %s\n",
					r.ID, r.SourceName, r.Status,
					r.ItemsFound, r.ItemsImported, r.ItemsSkipped, r.ItemsErrored,
					r.StartedAt.Format(time.RFC3339))
				if r.ErrorMessage != "" {
					fmt.Printf("      error: %s\n", r.ErrorMessage)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "Filter by source name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max runs to list")
	return cmd
}

// ============ CONTENT COMMANDS ============

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Content store commands",
	}

	cmd.AddCommand(contentStatsCmd())
	return cmd
}

func contentStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show content store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			stats, err := repo.ContentStats(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Content Store ===\n")
			fmt.Printf("Total records: %d (viral: %d)\n", stats.Total, stats.ViralCount)

			fmt.Printf("\nBy type:\n")
			for t, n := range stats.ByType {
				fmt.Printf("  %-10s %d\n", t, n)
			}
			fmt.Printf("\nBy platform:\n")
			for p, n := range stats.ByPlatform {
				fmt.Printf("  %-10s %d\n", p, n)
			}
			fmt.Printf("\nBy status:\n")
			for st, n := range stats.ByStatus {
				fmt.Printf("  %-18s %d\n", st, n)
			}
			return nil
		},
	}
}
