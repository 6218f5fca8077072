package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prestige-scraper/pkg/export"
	"prestige-scraper/pkg/fetcher"
	"prestige-scraper/pkg/pipeline"
	"prestige-scraper/pkg/storage"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

const defaultStatsWindow = 24 * time.Hour

func runScraper(c *cli.Context) error {
	cfg, appLog, err := setup(c)
	if err != nil {
		return err
	}
	categoryURL := cfg.CategoryURL
	if v := c.String("category-url"); v != "" {
		categoryURL = v
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.WithFields(log.Fields{
		"db_path":      cfg.DBPath,
		"category_url": categoryURL,
		"stealth":      cfg.StealthEnabled,
		"rate_limit":   cfg.RateLimitDelay(),
	}).Info("Starting scrape")

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		appLog.WithError(err).Error("Failed to open storage")
		return cli.NewExitError(err.Error(), 1)
	}
	defer store.Close()

	f, err := fetcher.New(fetcherOptions(cfg), log.NewEntry(appLog))
	if err != nil {
		appLog.WithError(err).Error("Failed to start fetcher")
		return cli.NewExitError(err.Error(), 1)
	}
	defer f.Close()

	p := pipeline.New(f, store, pipelineOptions(cfg), log.NewEntry(appLog))
	summary, err := p.Run(ctx, categoryURL)
	if errors.Is(err, context.Canceled) {
		appLog.Warn("Interrupted, stopping")
		return cli.NewExitError("interrupted", 130)
	}
	if err != nil {
		appLog.WithError(err).Error("Run aborted")
		return cli.NewExitError(err.Error(), 1)
	}

	fmt.Fprintf(c.App.Writer, "run %s: %d discovered (%d new, %d not stored), %d written, %d unchanged, %d fetch failed, %d not a product, %d store failed\n",
		summary.RunID, summary.Discovered, summary.NewURLs, summary.DiscoveryFailed, summary.Written, summary.Unchanged,
		summary.FetchFailed, summary.ExtractFailed, summary.StoreFailed)
	return nil
}

func printStats(c *cli.Context) error {
	cfg, _, err := setup(c)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer store.Close()

	window := c.Duration("since")
	if window <= 0 {
		window = defaultStatsWindow
	}
	stats, err := store.Stats(context.Background(), time.Now().Add(-window))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func exportCSV(c *cli.Context) error {
	cfg, appLog, err := setup(c)
	if err != nil {
		return err
	}
	path := cfg.ExportPath
	if v := c.String("output"); v != "" {
		path = v
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer store.Close()

	records, err := store.ListProducts(context.Background())
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	out, err := os.Create(path)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to create %s: %v", path, err), 1)
	}
	if err := export.WriteCSV(out, records); err != nil {
		out.Close()
		return cli.NewExitError(fmt.Sprintf("failed to export to %s: %v", path, err), 1)
	}
	if err := out.Close(); err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to close %s: %v", path, err), 1)
	}

	appLog.WithFields(log.Fields{"path": path, "products": len(records)}).Info("Exported products")
	return nil
}
