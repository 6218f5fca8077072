package main

import (
	"fmt"
	"os"

	"prestige-scraper/pkg/config"
	"prestige-scraper/pkg/fetcher"
	"prestige-scraper/pkg/logger"
	"prestige-scraper/pkg/pipeline"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "prestige-scraper"
	app.Usage = "scrape product listings into sqlite with change detection"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "optional config file; SCRAPER_* environment variables override it",
		},
	}

	runFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "category-url",
			Usage: "category page to enumerate (default from SCRAPER_CATEGORY_URL)",
		},
	}
	app.Action = runScraper

	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "discover products on the category page and scrape each of them",
			Flags:  runFlags,
			Action: runScraper,
		},
		{
			Name:  "stats",
			Usage: "print storage statistics as JSON",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "since",
					Usage: "window for the recent activity counters",
					Value: defaultStatsWindow,
				},
			},
			Action: printStats,
		},
		{
			Name:  "export",
			Usage: "write all stored products to a CSV file",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output, o",
					Usage: "CSV path (default from SCRAPER_EXPORT_PATH)",
				},
			},
			Action: exportCSV,
		},
		{
			Name:   "serve",
			Usage:  "serve stored products over a read-only HTTP API",
			Action: serveAPI,
		},
	}
	return app
}

// setup loads configuration and builds the logger every command shares.
func setup(c *cli.Context) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, nil, cli.NewExitError(err.Error(), 1)
	}
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Format), nil
}

func fetcherOptions(cfg *config.Config) fetcher.Options {
	opts := fetcher.DefaultOptions()
	opts.Stealth = cfg.StealthEnabled
	opts.Headless = cfg.Browser.Headless
	opts.Undetected = cfg.Browser.Undetected
	opts.DebugDir = cfg.Browser.DebugDir
	if cfg.FetchTimeout > 0 {
		opts.Timeout = cfg.FetchTimeout
	}
	return opts
}

func pipelineOptions(cfg *config.Config) pipeline.Options {
	return pipeline.Options{
		ProductLinkSelector: cfg.ProductLinkSelector,
		RateLimit:           cfg.RateLimitDelay(),
		MaxRetries:          cfg.MaxRetries,
		ChallengeRetries:    cfg.ChallengeRetries,
		BackoffBase:         cfg.BackoffBase,
		BackoffMax:          cfg.BackoffMax,
		MaxProducts:         cfg.MaxProducts,
	}
}
