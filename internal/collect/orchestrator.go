// Package collect runs section collection in bounded concurrent batches,
// isolating failures per section and checkpointing between batches.
package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"activitytracker-engine/internal/checkpoint"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/identity"
	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/observability"
)

// Collector fetches the raw fragments of one category. Implementations
// should honor ctx, but the orchestrator enforces the section timeout
// either way.
type Collector interface {
	Name() string
	Collect(ctx context.Context, category string) ([]domain.RawFragment, error)
}

// ParseFunc turns fragments into activities and reports how many were skipped.
type ParseFunc func([]domain.RawFragment) ([]domain.ParsedActivity, int)

type Config struct {
	Concurrency     int
	SectionTimeout  time.Duration
	MaxAttempts     int
	InitialInterval time.Duration
	FallbackPolicy  identity.FallbackPolicy
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 3
	}
	if c.SectionTimeout <= 0 {
		c.SectionTimeout = 2 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 2 * time.Second
	}
	if c.FallbackPolicy == "" {
		c.FallbackPolicy = identity.FallbackCoarse
	}
	return c
}

type SectionOutcome struct {
	Category   string
	Fragments  int
	Skipped    int
	Activities []domain.ParsedActivity // as parsed, before run-level dedup
	Err        error
	Attempts   int
	Duration   time.Duration
}

// SectionFailure is an isolated, non-fatal failure of one section.
type SectionFailure struct {
	Category string
	Attempts int
	Err      error
}

func (e *SectionFailure) Error() string {
	return fmt.Sprintf("section %q failed after %d attempt(s): %v", e.Category, e.Attempts, e.Err)
}

func (e *SectionFailure) Unwrap() error { return e.Err }

type Result struct {
	// Activities holds every unique activity of the run, resumed ones first.
	Activities []domain.ParsedActivity
	Sections   []SectionOutcome
	State      *checkpoint.State
}

func (r Result) Failures() []SectionFailure {
	var out []SectionFailure
	for _, s := range r.Sections {
		if s.Err != nil {
			out = append(out, SectionFailure{Category: s.Category, Attempts: s.Attempts, Err: s.Err})
		}
	}
	return out
}

type Orchestrator struct {
	collector Collector
	parse     ParseFunc
	cfg       Config

	// Checkpoint, when set, is called with the run state after every batch.
	// A checkpoint error is logged and does not stop the run.
	Checkpoint func(*checkpoint.State) error
}

func New(c Collector, parse ParseFunc, cfg Config) *Orchestrator {
	return &Orchestrator{collector: c, parse: parse, cfg: cfg.withDefaults()}
}

// Run collects every category not already processed in state. Batches run
// one after another; sections within a batch run concurrently and are all
// awaited. Only cancellation of ctx stops the run early.
func (o *Orchestrator) Run(ctx context.Context, categories []string, state *checkpoint.State) (Result, error) {
	ctx, log := logging.WithComponent(ctx, "collect")
	if state == nil {
		state = checkpoint.New()
	}

	dedup := identity.NewDeduper(o.cfg.FallbackPolicy, state.SeenIDs...)
	res := Result{State: state}

	var pending []string
	queued := map[string]bool{}
	for _, c := range categories {
		if state.Processed(c) || queued[c] {
			continue
		}
		queued[c] = true
		pending = append(pending, c)
	}
	if skipped := len(categories) - len(pending); skipped > 0 {
		log.Info().Int("skipped", skipped).Msg("categories already processed or repeated")
	}

	for start := 0; start < len(pending); start += o.cfg.Concurrency {
		if err := ctx.Err(); err != nil {
			res.Activities = state.Activities
			return res, err
		}

		end := min(start+o.cfg.Concurrency, len(pending))
		batch := pending[start:end]
		slots := make([]SectionOutcome, len(batch))

		var g errgroup.Group
		for i, cat := range batch {
			g.Go(func() error {
				// best-effort: a failed section never cancels its siblings
				slots[i] = o.runSection(ctx, cat)
				return nil
			})
		}
		_ = g.Wait()

		for _, s := range slots {
			observability.RecordSection(s.Category, s.Duration, s.Err)
			if s.Err != nil {
				log.Warn().Err(s.Err).Str("category", s.Category).Int("attempts", s.Attempts).Msg("section failed")
				continue
			}
			observability.RecordFragments(len(s.Activities), s.Skipped)
			fresh := dedup.Dedupe(s.Activities)
			state.Activities = append(state.Activities, fresh...)
			state.MarkProcessed(s.Category)
			log.Debug().
				Str("category", s.Category).
				Int("fragments", s.Fragments).
				Int("parsed", len(s.Activities)).
				Int("new", len(fresh)).
				Dur("took", s.Duration).
				Msg("section done")
		}
		state.SeenIDs = dedup.Seen()
		res.Sections = append(res.Sections, slots...)

		if o.Checkpoint != nil {
			if err := o.Checkpoint(state); err != nil {
				log.Warn().Err(err).Msg("checkpoint not saved")
			}
		}
	}

	res.Activities = state.Activities
	return res, nil
}

func (o *Orchestrator) runSection(ctx context.Context, category string) SectionOutcome {
	out := SectionOutcome{Category: category}
	began := time.Now()

	var frags []domain.RawFragment
	op := func() error {
		out.Attempts++
		sctx, cancel := context.WithTimeout(ctx, o.cfg.SectionTimeout)
		defer cancel()

		f, err := o.collectOnce(sctx, category)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		frags = f
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.cfg.InitialInterval
	b.MaxElapsedTime = 0
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(o.cfg.MaxAttempts-1)), ctx))
	if err != nil {
		out.Err = &SectionFailure{Category: category, Attempts: out.Attempts, Err: err}
		out.Duration = time.Since(began)
		return out
	}

	for i := range frags {
		if frags[i].SectionLabel == "" {
			frags[i].SectionLabel = category
		}
	}
	out.Fragments = len(frags)
	out.Activities, out.Skipped = o.parse(frags)
	out.Duration = time.Since(began)
	return out
}

// collectOnce bounds a single Collect call by ctx even if the collector
// ignores cancellation. An abandoned call finishes in the background.
func (o *Orchestrator) collectOnce(ctx context.Context, category string) ([]domain.RawFragment, error) {
	type collected struct {
		frags []domain.RawFragment
		err   error
	}
	ch := make(chan collected, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- collected{err: fmt.Errorf("collector %s panicked: %v", o.collector.Name(), r)}
			}
		}()
		f, err := o.collector.Collect(ctx, category)
		ch <- collected{frags: f, err: err}
	}()

	select {
	case r := <-ch:
		return r.frags, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("collect %q: %w", category, ctx.Err())
	}
}
