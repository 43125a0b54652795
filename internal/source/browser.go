package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"activitytracker-engine/internal/domain"
)

// BrowserCollector renders category pages in headless Chrome, for sites
// whose listings are built client-side. Requires Chrome or Chromium.
type BrowserCollector struct {
	URLTemplate string
	RowSelector string
	Limiter     *HostLimiter
	// Settle is how long to wait after the first row appears.
	Settle time.Duration
}

func (c *BrowserCollector) Name() string { return "browser" }

func (c *BrowserCollector) Collect(ctx context.Context, category string) ([]domain.RawFragment, error) {
	target := URLFor(c.URLTemplate, category)
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("bad url %q: %w", target, err)
	}
	if err := c.Limiter.WaitURL(ctx, target); err != nil {
		return nil, err
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var html string
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(target),
		chromedp.WaitReady("body"),
		chromedp.WaitVisible(c.RowSelector, chromedp.ByQuery),
		chromedp.Sleep(c.Settle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", target, err)
	}

	return SplitRows(strings.NewReader(html), c.RowSelector, base, category)
}
