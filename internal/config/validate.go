package config

import (
	"fmt"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Categories = trimList(out.Categories)
	out.Provider.ID = strings.TrimSpace(out.Provider.ID)
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))
	out.Source.Kind = strings.ToLower(strings.TrimSpace(out.Source.Kind))
	out.Dedup.FallbackPolicy = strings.ToLower(strings.TrimSpace(out.Dedup.FallbackPolicy))

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}
	if out.Provider.ID == "" {
		res.addErr("provider.id is required")
	}
	if len(out.Categories) == 0 {
		res.addErr("categories must list at least one category")
	}

	if out.Sync.Concurrency <= 0 {
		res.addErr("sync.concurrency must be > 0")
	} else if out.Sync.Concurrency > 10 {
		res.addWarn("sync.concurrency is high (%d) and may get the provider to block you.", out.Sync.Concurrency)
	}
	if out.Sync.SectionTimeout <= 0 {
		res.addErr("sync.section_timeout must be > 0")
	}
	if out.Sync.Interval > 0 && out.Sync.Interval < 10*time.Minute {
		res.addWarn("sync.interval is very low (%s).", out.Sync.Interval)
	}
	if out.Sync.Retry.MaxAttempts <= 0 {
		res.addErr("sync.retry.max_attempts must be >= 1")
	}

	switch out.Dedup.FallbackPolicy {
	case "coarse", "strict":
	default:
		res.addErr("dedup.fallback_policy must be coarse or strict")
	}

	switch out.Store.Driver {
	case "sqlite":
		if strings.TrimSpace(out.Store.Path) == "" {
			res.addErr("store.path is required when store.driver=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(out.Store.PostgresURL) == "" {
			res.addErr("store.postgres_url is required when store.driver=postgres")
		}
	default:
		res.addErr("store.driver must be sqlite or postgres")
	}

	switch out.Source.Kind {
	case "http", "browser":
		if !strings.Contains(out.Source.URLTemplate, "{category}") {
			res.addErr("source.url_template must contain {category}")
		}
		if strings.TrimSpace(out.Source.RowSelector) == "" {
			res.addErr("source.row_selector is required when source.kind=%s", out.Source.Kind)
		}
		if out.Source.RatePerSec <= 0 {
			res.addWarn("source.rate_per_sec is not set; requests will not be rate limited.")
		}
	case "file":
		if strings.TrimSpace(out.Source.FixturesDir) == "" {
			res.addErr("source.fixtures_dir is required when source.kind=file")
		}
	default:
		res.addErr("source.kind must be http, browser or file")
	}

	if out.Checkpoint.Enabled && strings.TrimSpace(out.Checkpoint.Path) == "" {
		res.addErr("checkpoint.path is required when checkpoint.enabled=true")
	}
	if strings.TrimSpace(out.Report.Dir) == "" {
		res.addWarn("report.dir is empty; run reports will not be written.")
	}

	return out, res
}
