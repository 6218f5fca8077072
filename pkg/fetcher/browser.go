package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync/atomic"
	"time"

	"prestige-scraper/pkg/extractor"

	cu "github.com/Davincible/chromedp-undetected"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	log "github.com/sirupsen/logrus"
)

// Browser fetches pages through one long-lived Chrome instance, opening a
// fresh tab per fetch.
type Browser struct {
	opts      Options
	log       *log.Entry
	userAgent string
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewBrowser(opts Options, logger *log.Entry) (*Browser, error) {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	b := &Browser{
		opts:      opts,
		log:       logger.WithField("fetcher", "browser"),
		userAgent: randomUserAgent(),
	}

	width, height := randomViewport()
	flags := []chromedp.ExecAllocatorOption{
		chromedp.UserAgent(b.userAgent),
		chromedp.WindowSize(width, height),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("lang", "en-GB"),
	}

	if opts.Undetected {
		cuOpts := []cu.Option{cu.WithChromeFlags(flags...)}
		if opts.Headless {
			cuOpts = append(cuOpts, cu.WithHeadless())
		}
		ctx, cancel, err := cu.New(cu.NewConfig(cuOpts...))
		if err != nil {
			return nil, fmt.Errorf("failed to launch undetected chrome: %w", err)
		}
		b.ctx, b.cancel = ctx, cancel
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], flags...)
		if !opts.Headless {
			allocOpts = append(allocOpts, chromedp.Flag("headless", false))
		}
		allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
		ctx, cancelCtx := chromedp.NewContext(allocCtx)
		b.ctx = ctx
		b.cancel = func() {
			cancelCtx()
			cancelAlloc()
		}
	}

	// start the browser now so a missing Chrome fails setup, not the first URL
	if err := chromedp.Run(b.ctx); err != nil {
		b.cancel()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	b.log.WithFields(log.Fields{
		"user_agent": b.userAgent,
		"viewport":   fmt.Sprintf("%dx%d", width, height),
		"undetected": opts.Undetected,
	}).Info("Browser started")

	return b, nil
}

func (b *Browser) Fetch(ctx context.Context, url string) (*Page, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.ctx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, b.opts.Timeout)
	defer cancelRun()
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	// first document response of the tab; reset after a challenge so the
	// reload that follows is recorded
	var status atomic.Int64
	chromedp.ListenTarget(runCtx, func(ev any) {
		if e, ok := ev.(*network.EventResponseReceived); ok && e.Type == network.ResourceTypeDocument {
			status.CompareAndSwap(0, e.Response.Status)
		}
	})

	var title, html string
	err := chromedp.Run(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(randomBetween(b.opts.NavWaitMin, b.opts.NavWaitMax)),
		chromedp.Evaluate(randomScrollJS, new(bool)),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, b.fail(ctx, tabCtx, url, err)
	}

	if extractor.IsChallenge(title, html) {
		wait := randomBetween(b.opts.ChallengeWaitMin, b.opts.ChallengeWaitMax)
		b.log.WithFields(log.Fields{"url": url, "wait": wait}).Warn("Challenge page detected, waiting for it to clear")
		status.Store(0)

		err := chromedp.Run(runCtx,
			chromedp.Sleep(wait),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Title(&title),
			chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		)
		if err != nil {
			return nil, b.fail(ctx, tabCtx, url, err)
		}
		if extractor.IsChallenge(title, html) {
			b.saveDebug(tabCtx, url)
			return nil, challengeError(url)
		}
		b.log.WithField("url", url).Info("Challenge cleared")
	}

	code := int(status.Load())
	if err := checkStatus(url, code); err != nil {
		return nil, err
	}

	return &Page{URL: url, StatusCode: code, Title: title, HTML: html}, nil
}

// fail classifies a browser error. Cancellation by the caller is passed
// through; everything else (timeouts, net errors, crashed tabs) is transient.
func (b *Browser) fail(ctx, tabCtx context.Context, url string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	b.log.WithError(err).WithField("url", url).Warn("Browser fetch failed")
	b.saveDebug(tabCtx, url)
	if errors.Is(err, context.DeadlineExceeded) {
		return transient(url, fmt.Errorf("timed out after %s", b.opts.Timeout))
	}
	return transient(url, err)
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func debugName(url string) string {
	name := unsafeName.ReplaceAllString(url, "_")
	if len(name) > 80 {
		name = name[len(name)-80:]
	}
	return name
}

func (b *Browser) saveDebug(tabCtx context.Context, url string) {
	if b.opts.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(b.opts.DebugDir, 0o755); err != nil {
		b.log.WithError(err).Warn("Failed to create debug directory")
		return
	}

	debugCtx, cancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancel()

	base := filepath.Join(b.opts.DebugDir, debugName(url))

	var buf []byte
	if err := chromedp.Run(debugCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		b.log.WithError(err).Warn("Failed to capture screenshot")
	} else if err := os.WriteFile(base+".png", buf, 0o644); err != nil {
		b.log.WithError(err).Warn("Failed to write screenshot")
	} else {
		b.log.WithField("path", base+".png").Info("Screenshot saved")
	}

	var html string
	if err := chromedp.Run(debugCtx, chromedp.Evaluate(`document.documentElement.outerHTML`, &html)); err != nil {
		b.log.WithError(err).Warn("Failed to capture HTML")
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		b.log.WithError(err).Warn("Failed to write HTML")
	}
}

func (b *Browser) Close() error {
	b.cancel()
	return nil
}
