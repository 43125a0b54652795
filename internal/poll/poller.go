// Package poll keeps the catalog fresh by syncing on a schedule and pruning
// old job history.
package poll

import (
	"context"
	"errors"
	"time"

	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/pipeline"
	"activitytracker-engine/internal/scheduler"
)

type Pruner interface {
	PruneSyncJobs(ctx context.Context, cutoff time.Time) (int64, error)
}

type Poller struct {
	Tracker   *pipeline.Tracker
	NewRunner func() (*pipeline.Runner, error)
	Interval  time.Duration

	Pruner       Pruner
	KeepJobsDays int
	Now          func() time.Time
}

// Start launches the sync and prune loops; both stop with ctx.
func (p *Poller) Start(ctx context.Context) {
	go scheduler.Every(ctx, p.Interval, "sync", p.SyncOnce)
	if p.Pruner != nil && p.KeepJobsDays > 0 {
		go scheduler.Every(ctx, 24*time.Hour, "prune", p.PruneOnce)
	}
}

// SyncOnce runs one sync through the shared tracker. A run already in
// flight (manual or scheduled) is not an error.
func (p *Poller) SyncOnce(ctx context.Context) error {
	log := logging.Component("poll")

	r, err := p.NewRunner()
	if err != nil {
		return err
	}
	out, err := p.Tracker.RunOnce(ctx, r)
	switch {
	case errors.Is(err, pipeline.ErrAlreadyRunning):
		log.Info().Msg("sync already running, tick skipped")
		return nil
	case err != nil:
		return err
	}
	log.Info().
		Str("job_id", out.Job.ID).
		Int("created", out.Job.Created).
		Int("updated", out.Job.Updated).
		Int("removed", out.Job.Removed).
		Int("errors", out.Job.Errors).
		Msg("sync ok")
	return nil
}

// PruneOnce deletes finished sync jobs older than KeepJobsDays.
func (p *Poller) PruneOnce(ctx context.Context) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	cutoff := now().AddDate(0, 0, -p.KeepJobsDays)
	n, err := p.Pruner.PruneSyncJobs(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		log := logging.Component("poll")
		log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("pruned sync jobs")
	}
	return nil
}
