package source

import (
	"fmt"
	"time"

	"activitytracker-engine/internal/collect"
)

const (
	KindHTTP    = "http"
	KindBrowser = "browser"
	KindFile    = "file"
)

type Options struct {
	Kind        string
	URLTemplate string
	RowSelector string
	RatePerSec  float64
	Burst       int
	FixturesDir string
}

// New builds the collector for opts.Kind.
func New(opts Options) (collect.Collector, error) {
	limiter := NewHostLimiter(opts.RatePerSec, opts.Burst)
	switch opts.Kind {
	case KindHTTP, "":
		return NewHTTPCollector(opts.URLTemplate, opts.RowSelector, limiter), nil
	case KindBrowser:
		return &BrowserCollector{
			URLTemplate: opts.URLTemplate,
			RowSelector: opts.RowSelector,
			Limiter:     limiter,
			Settle:      time.Second,
		}, nil
	case KindFile:
		return &FileCollector{Dir: opts.FixturesDir}, nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", opts.Kind)
	}
}
