package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"activitytracker-engine/internal/domain"
)

// HTTPCollector fetches server-rendered category pages.
type HTTPCollector struct {
	URLTemplate string
	RowSelector string
	Limiter     *HostLimiter
	Client      *http.Client
	UserAgent   string
}

func NewHTTPCollector(urlTemplate, rowSelector string, limiter *HostLimiter) *HTTPCollector {
	return &HTTPCollector{
		URLTemplate: urlTemplate,
		RowSelector: rowSelector,
		Limiter:     limiter,
		Client:      &http.Client{Timeout: 30 * time.Second},
		UserAgent:   "ActivityTracker/1.0 (+local)",
	}
}

func (c *HTTPCollector) Name() string { return "http" }

func (c *HTTPCollector) Collect(ctx context.Context, category string) ([]domain.RawFragment, error) {
	target := URLFor(c.URLTemplate, category)
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("bad url %q: %w", target, err)
	}
	if err := c.Limiter.WaitURL(ctx, target); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.UserAgent)

	res, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", target, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("get %s: status %d", target, res.StatusCode)
	}

	return SplitRows(res.Body, c.RowSelector, base, category)
}
