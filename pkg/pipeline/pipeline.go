package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prestige-scraper/pkg/change"
	"prestige-scraper/pkg/extractor"
	"prestige-scraper/pkg/fetcher"
	"prestige-scraper/pkg/logger"
	"prestige-scraper/pkg/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Store is the persistence the pipeline writes through.
type Store interface {
	UpsertProductURL(ctx context.Context, url string) (bool, error)
	StoredHash(ctx context.Context, url string) (string, bool, error)
	UpsertDetail(ctx context.Context, url string, f models.Fields, hash string) error
	RecordError(ctx context.Context, e models.ScrapeError) error
}

type Options struct {
	ProductLinkSelector string
	// RateLimit is the pause between consecutive detail fetches.
	RateLimit time.Duration
	// MaxRetries bounds extra attempts after a transient failure,
	// ChallengeRetries after an unsolved challenge.
	MaxRetries       int
	ChallengeRetries int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	// MaxProducts caps detail fetches per run; 0 means no cap.
	MaxProducts int
}

// State is where a URL ended up in a run.
type State string

const (
	StateDiscovered       State = "discovered"
	StateFetched          State = "fetched"
	StateWritten          State = "written"
	StateUnchanged        State = "unchanged"
	StateExtractionFailed State = "extraction_failed"
	StateFetchFailed      State = "fetch_failed"
	StateStoreFailed      State = "store_failed"
)

type URLResult struct {
	URL      string
	State    State
	Attempts int
	Err      error
}

// Summary counts what a run did. DiscoveryFailed counts URLs whose discovery
// row could not be stored; they are still processed.
type Summary struct {
	RunID           string
	Discovered      int
	NewURLs         int
	DiscoveryFailed int
	Written         int
	Unchanged       int
	FetchFailed     int
	ExtractFailed   int
	StoreFailed     int
	Results         []URLResult
	Duration        time.Duration
}

func (s *Summary) add(r URLResult) {
	s.Results = append(s.Results, r)
	switch r.State {
	case StateWritten:
		s.Written++
	case StateUnchanged:
		s.Unchanged++
	case StateFetchFailed:
		s.FetchFailed++
	case StateExtractionFailed:
		s.ExtractFailed++
	case StateStoreFailed:
		s.StoreFailed++
	}
}

type Pipeline struct {
	fetcher  fetcher.Fetcher
	store    Store
	detector *change.Detector
	opts     Options
	log      *log.Entry

	// sleep waits for d or until ctx is done.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(f fetcher.Fetcher, store Store, opts Options, entry *log.Entry) *Pipeline {
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	return &Pipeline{
		fetcher:  f,
		store:    store,
		detector: change.NewDetector(store),
		opts:     opts,
		log:      entry.WithField("component", "pipeline"),
		sleep:    sleepCtx,
	}
}

// Run discovers product URLs on one category page and scrapes each of them
// in discovery order. Only setup failures are returned as errors; per-URL
// failures are logged, recorded and counted in the summary.
func (p *Pipeline) Run(ctx context.Context, categoryURL string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	runLog := p.log.WithField("run_id", summary.RunID)

	urls, err := p.discover(ctx, runLog, summary, categoryURL)
	if err != nil {
		p.record(ctx, runLog, summary.RunID, categoryURL, models.KindDiscoveryFailed, err, 0)
		return nil, err
	}

	if p.opts.MaxProducts > 0 && len(urls) > p.opts.MaxProducts {
		runLog.Infof("Limiting run to %d of %d products", p.opts.MaxProducts, len(urls))
		urls = urls[:p.opts.MaxProducts]
	}

	waits := logger.NewDeduper(runLog, 10*time.Second)
	defer waits.Flush()

	for i, url := range urls {
		if i > 0 && p.opts.RateLimit > 0 {
			waits.Infof("Rate limiting: waiting %s between products", p.opts.RateLimit)
			if err := p.sleep(ctx, p.opts.RateLimit); err != nil {
				return summary, err
			}
		}

		res := p.process(ctx, runLog.WithField("url", url), summary.RunID, url)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.add(res)
	}

	summary.Duration = time.Since(start)
	runLog.WithFields(log.Fields{
		"discovered":       summary.Discovered,
		"new_urls":         summary.NewURLs,
		"discovery_failed": summary.DiscoveryFailed,
		"written":          summary.Written,
		"unchanged":        summary.Unchanged,
		"fetch_failed":     summary.FetchFailed,
		"extract_failed":   summary.ExtractFailed,
		"store_failed":     summary.StoreFailed,
		"duration":         summary.Duration.Round(time.Millisecond),
	}).Info("Run complete")

	return summary, nil
}

// discover fetches the category page and records every product URL on it
// before any detail page is fetched.
func (p *Pipeline) discover(ctx context.Context, runLog *log.Entry, summary *Summary, categoryURL string) ([]string, error) {
	runLog.WithField("url", categoryURL).Info("Fetching category page")

	page, _, err := p.fetch(ctx, runLog.WithField("url", categoryURL), categoryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category page %s: %w", categoryURL, err)
	}

	urls, err := extractor.ProductLinks(page.HTML, categoryURL, p.opts.ProductLinkSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate products on %s: %w", categoryURL, err)
	}
	if len(urls) == 0 {
		runLog.Warn("No product links found on category page")
	}

	for _, url := range urls {
		inserted, err := p.store.UpsertProductURL(ctx, url)
		if err != nil {
			summary.DiscoveryFailed++
			p.record(ctx, runLog.WithField("url", url), summary.RunID, url, models.KindStorage,
				fmt.Errorf("failed to record product URL: %w", err), 0)
			continue
		}
		if inserted {
			summary.NewURLs++
		}
	}
	summary.Discovered = len(urls)
	runLog.WithFields(log.Fields{"found": len(urls), "new": summary.NewURLs}).Info("Discovery complete")

	return urls, nil
}

// process takes one URL through fetch, extract, detect and write.
func (p *Pipeline) process(ctx context.Context, urlLog *log.Entry, runID, url string) URLResult {
	res := URLResult{URL: url, State: StateDiscovered}

	page, attempts, err := p.fetch(ctx, urlLog, url)
	res.Attempts = attempts
	if err != nil {
		res.State, res.Err = StateFetchFailed, err
		p.record(ctx, urlLog, runID, url, models.Kind(err), err, attempts)
		return res
	}
	res.State = StateFetched

	fields, err := extractor.Extract(page.HTML)
	if err != nil {
		res.State, res.Err = StateExtractionFailed, err
		p.record(ctx, urlLog, runID, url, models.KindNotProductPage, err, attempts)
		return res
	}

	changed, hash, err := p.detector.HasChanged(ctx, url, *fields)
	if err != nil {
		res.State, res.Err = StateStoreFailed, err
		p.record(ctx, urlLog, runID, url, models.KindStorage, err, attempts)
		return res
	}
	if !changed {
		res.State = StateUnchanged
		urlLog.WithField("name", fields.Name).Info("No change")
		return res
	}

	if err := p.store.UpsertDetail(ctx, url, *fields, hash); err != nil {
		res.State, res.Err = StateStoreFailed, err
		p.record(ctx, urlLog, runID, url, models.KindStorage, err, attempts)
		return res
	}

	res.State = StateWritten
	entry := urlLog.WithField("name", fields.Name)
	if fields.PriceRetail != nil {
		entry = entry.WithField("price", *fields.PriceRetail)
	}
	entry.Info("Saved product")
	return res
}

// fetch applies the retry policy: transient failures get MaxRetries extra
// attempts, unsolved challenges ChallengeRetries, everything else is final.
func (p *Pipeline) fetch(ctx context.Context, urlLog *log.Entry, url string) (*fetcher.Page, int, error) {
	transientLeft, challengeLeft := p.opts.MaxRetries, p.opts.ChallengeRetries

	for attempt := 1; ; attempt++ {
		page, err := p.fetcher.Fetch(ctx, url)
		if err == nil {
			return page, attempt, nil
		}
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}

		retry := false
		switch {
		case errors.Is(err, models.ErrTransient) && transientLeft > 0:
			transientLeft--
			retry = true
		case errors.Is(err, models.ErrChallenge) && challengeLeft > 0:
			challengeLeft--
			retry = true
		}
		if !retry {
			return nil, attempt, err
		}

		delay := p.backoff(attempt - 1)
		urlLog.WithError(err).WithFields(log.Fields{
			"attempt": attempt,
			"kind":    models.Kind(err),
			"backoff": delay,
		}).Warn("Fetch failed, retrying")

		if err := p.sleep(ctx, delay); err != nil {
			return nil, attempt, err
		}
	}
}

// backoff is BackoffBase * 2^retry, capped at BackoffMax.
func (p *Pipeline) backoff(retry int) time.Duration {
	d := p.opts.BackoffBase
	for i := 0; i < retry; i++ {
		d *= 2
		if p.opts.BackoffMax > 0 && d >= p.opts.BackoffMax {
			return p.opts.BackoffMax
		}
	}
	if p.opts.BackoffMax > 0 && d > p.opts.BackoffMax {
		return p.opts.BackoffMax
	}
	return d
}

// record logs a terminal failure and stores it in the error log. Nothing is
// stored once the run is cancelled.
func (p *Pipeline) record(ctx context.Context, entry *log.Entry, runID, url, kind string, err error, attempts int) {
	entry.WithError(err).WithFields(log.Fields{"kind": kind, "attempts": attempts}).Error("Failed to scrape")

	if ctx.Err() != nil {
		return
	}
	rerr := p.store.RecordError(ctx, models.ScrapeError{
		RunID:    runID,
		URL:      url,
		Kind:     kind,
		Message:  err.Error(),
		Attempts: attempts,
	})
	if rerr != nil {
		entry.WithError(rerr).Error("Failed to record scrape error")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
