package fetcher

import (
	"context"
	"errors"
	"fmt"

	"prestige-scraper/pkg/extractor"

	"github.com/gocolly/colly/v2"
	log "github.com/sirupsen/logrus"
)

// Plain fetches raw HTML over HTTP without rendering JavaScript.
type Plain struct {
	collector *colly.Collector
	log       *log.Entry
}

func NewPlain(opts Options, logger *log.Entry) *Plain {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	c := colly.NewCollector(
		colly.UserAgent(randomUserAgent()),
		colly.AllowURLRevisit(),
	)
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	// error statuses still carry a body worth inspecting for challenges
	c.ParseHTTPErrorResponse = true

	return &Plain{collector: c, log: logger.WithField("fetcher", "plain")}
}

func (p *Plain) Fetch(ctx context.Context, url string) (*Page, error) {
	c := p.collector.Clone()
	c.Context = ctx

	c.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept-Language", acceptLanguage)
	})

	var result *Page
	c.OnResponse(func(r *colly.Response) {
		result = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			HTML:       string(r.Body),
		}
	})

	if err := c.Visit(url); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, colly.ErrMissingURL) || errors.Is(err, colly.ErrForbiddenDomain) || errors.Is(err, colly.ErrForbiddenURL) {
			return nil, fmt.Errorf("%s: %w", url, err)
		}
		p.log.WithError(err).WithField("url", url).Warn("Request failed")
		return nil, transient(url, err)
	}
	if result == nil {
		return nil, transient(url, errors.New("empty response"))
	}

	result.Title = extractor.PageTitle(result.HTML)
	if extractor.IsChallenge(result.Title, result.HTML) {
		return nil, challengeError(url)
	}
	if err := checkStatus(url, result.StatusCode); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Plain) Close() error { return nil }
