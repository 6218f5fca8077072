package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"prestige-scraper/pkg/models"

	log "github.com/sirupsen/logrus"
)

// Page is a fetched, fully rendered document.
type Page struct {
	URL        string
	StatusCode int
	Title      string
	HTML       string
}

// Fetcher retrieves one page. Errors wrap models.ErrTransient (retryable),
// models.ErrChallenge (bot challenge still showing) or
// models.ErrProductNotFound (404/410, terminal).
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
	Close() error
}

type Options struct {
	// Stealth selects the headless browser fetcher. Without it pages are
	// fetched with a plain HTTP collector.
	Stealth    bool
	Headless   bool
	Undetected bool
	Timeout    time.Duration

	// Randomised pause after navigation and while a challenge page resolves.
	NavWaitMin, NavWaitMax             time.Duration
	ChallengeWaitMin, ChallengeWaitMax time.Duration

	// DebugDir receives a screenshot and the HTML of failed browser fetches
	// when set.
	DebugDir string
}

func DefaultOptions() Options {
	return Options{
		Stealth:          true,
		Headless:         true,
		Timeout:          45 * time.Second,
		NavWaitMin:       3 * time.Second,
		NavWaitMax:       8 * time.Second,
		ChallengeWaitMin: 10 * time.Second,
		ChallengeWaitMax: 20 * time.Second,
	}
}

// New returns the browser fetcher when stealth is on and the plain one
// otherwise.
func New(opts Options, logger *log.Entry) (Fetcher, error) {
	if opts.Stealth {
		return NewBrowser(opts, logger)
	}
	return NewPlain(opts, logger), nil
}

// checkStatus maps the document status to the fetch error taxonomy. A zero
// status means none was observed and is treated as success.
func checkStatus(url string, status int) error {
	switch {
	case status < http.StatusBadRequest:
		return nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return fmt.Errorf("%s: %w", url, models.ErrProductNotFound)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%s: status %d: %w", url, status, models.ErrTransient)
	default:
		return &models.StatusError{URL: url, StatusCode: status}
	}
}

func challengeError(url string) error {
	return fmt.Errorf("%s: %w", url, models.ErrChallenge)
}

func transient(url string, err error) error {
	return fmt.Errorf("%s: %w: %v", url, models.ErrTransient, err)
}
