// Package pipeline drives one sync run end to end: collect, dedupe,
// reconcile, and record the run as a SyncJob.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"activitytracker-engine/internal/checkpoint"
	"activitytracker-engine/internal/collect"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/events"
	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/observability"
	"activitytracker-engine/internal/parse"
	"activitytracker-engine/internal/reconcile"
	"activitytracker-engine/internal/report"
)

// ErrAllSectionsFailed aborts a run before reconcile when every section
// failed and Runner.AbortOnTotalFailure is set.
var ErrAllSectionsFailed = errors.New("all sections failed")

type JobStore interface {
	EnsureProvider(ctx context.Context, p domain.Provider) error
	CreateSyncJob(ctx context.Context, j domain.SyncJob) error
	FinishSyncJob(ctx context.Context, j domain.SyncJob) error
}

type Checkpointer interface {
	Load() (*checkpoint.State, error)
	Save(*checkpoint.State) error
	Discard() error
}

type Publisher interface {
	Publish(evt string)
}

type Runner struct {
	Provider   domain.Provider
	Categories []string
	Collector  collect.Collector
	Catalog    reconcile.Catalog
	Jobs       JobStore
	Collect    collect.Config

	Checkpoints Checkpointer // nil disables resume
	ReportDir   string       // "" disables report and artifact files
	Events      Publisher    // may be nil
	Now         func() time.Time

	// AbortOnTotalFailure fails the run instead of reconciling an empty
	// result when every section failed.
	AbortOnTotalFailure bool
}

type Outcome struct {
	Job          domain.SyncJob
	Report       *report.Report
	ReportPath   string
	ArtifactPath string
	Sections     []collect.SectionOutcome
}

// partialArtifact is written when a run fails after collecting, so the
// activities it gathered are not lost.
type partialArtifact struct {
	JobID      string                  `json:"jobId"`
	ProviderID string                  `json:"providerId"`
	Error      string                  `json:"error"`
	Activities []domain.ParsedActivity `json:"activities"`
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run executes one sync. The returned error is non-nil when the SyncJob
// ended Failed or could not be created.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	ctx, log := logging.WithComponent(ctx, "pipeline")
	started := r.now()

	if err := r.Jobs.EnsureProvider(ctx, r.Provider); err != nil {
		return Outcome{}, fmt.Errorf("setup: %w", err)
	}
	job := domain.SyncJob{
		ID:         uuid.NewString(),
		ProviderID: r.Provider.ID,
		Status:     domain.SyncRunning,
		StartedAt:  started,
	}
	if err := r.Jobs.CreateSyncJob(ctx, job); err != nil {
		return Outcome{}, fmt.Errorf("setup: %w", err)
	}
	l := log.With().Str("job_id", job.ID).Logger()
	log = &l
	ctx = logging.WithLogger(ctx, log)
	log.Info().Str("provider", r.Provider.ID).Int("categories", len(r.Categories)).Msg("sync started")
	r.publish(ctx, events.TypeSyncStarted, events.SyncData{JobID: job.ID, ProviderID: job.ProviderID})

	state := checkpoint.New()
	if r.Checkpoints != nil {
		st, err := r.Checkpoints.Load()
		if err != nil {
			log.Warn().Err(err).Msg("checkpoint unreadable, starting fresh")
		} else {
			state = st
			if n := len(st.ProcessedCategories); n > 0 {
				log.Info().Int("processed", n).Int("activities", len(st.Activities)).Msg("resuming from checkpoint")
			}
		}
	}

	orch := collect.New(r.Collector, parse.ParseAll, r.Collect)
	if r.Checkpoints != nil {
		orch.Checkpoint = r.Checkpoints.Save
	}
	res, err := orch.Run(ctx, r.Categories, state)
	out := Outcome{Sections: res.Sections}
	if err != nil {
		return r.fail(ctx, log, out, job, res.Activities, err)
	}

	failures := res.Failures()
	for _, f := range failures {
		r.publish(ctx, events.TypeSectionFailed, events.SectionData{
			JobID: job.ID, Category: f.Category, Attempts: f.Attempts, Error: f.Err.Error(),
		})
	}
	if r.AbortOnTotalFailure && len(res.Sections) > 0 && len(failures) == len(res.Sections) {
		return r.fail(ctx, log, out, job, res.Activities, ErrAllSectionsFailed)
	}

	rec := reconcile.New(r.Catalog, r.Collect.FallbackPolicy)
	rec.Now = r.now
	sr, err := rec.Reconcile(ctx, r.Provider.ID, res.Activities)
	observability.RecordReconcile(sr.Created, sr.Updated, sr.Removed, sr.Errors)
	if err != nil {
		return r.fail(ctx, log, out, job, res.Activities, err)
	}

	finished := r.now()
	job.Status = domain.SyncCompleted
	job.CompletedAt = &finished
	job.ActivitiesFound = len(res.Activities)
	job.Created, job.Updated, job.Removed, job.Errors = sr.Created, sr.Updated, sr.Removed, sr.Errors
	if err := r.Jobs.FinishSyncJob(ctx, job); err != nil {
		return out, fmt.Errorf("complete sync job %s: %w", job.ID, err)
	}
	out.Job = job

	if r.Checkpoints != nil {
		if err := r.Checkpoints.Discard(); err != nil {
			log.Warn().Err(err).Msg("checkpoint not discarded")
		}
	}

	rep := report.Build(started, finished, r.Categories, res.Activities, sr, res.Sections)
	rep.JobID = job.ID
	out.Report = &rep
	if r.ReportDir != "" {
		path, err := report.Write(r.ReportDir, rep)
		if err != nil {
			log.Warn().Err(err).Msg("report not written")
		}
		out.ReportPath = path
	}

	observability.RecordSync(string(job.Status), finished.Sub(started), finished)
	r.publish(ctx, events.TypeSyncCompleted, events.SyncData{
		JobID: job.ID, ProviderID: job.ProviderID,
		Created: sr.Created, Updated: sr.Updated, Removed: sr.Removed, Errors: sr.Errors,
	})
	log.Info().
		Int("found", job.ActivitiesFound).
		Int("created", job.Created).
		Int("updated", job.Updated).
		Int("removed", job.Removed).
		Int("errors", job.Errors).
		Int("failed_sections", len(failures)).
		Dur("took", finished.Sub(started)).
		Msg("sync completed")
	return out, nil
}

// fail marks the job Failed and preserves what was collected. The
// checkpoint is kept so the next run can resume.
func (r *Runner) fail(ctx context.Context, log *zerolog.Logger, out Outcome, job domain.SyncJob,
	activities []domain.ParsedActivity, cause error) (Outcome, error) {
	// record the failure even when ctx is what failed
	ctx = context.WithoutCancel(ctx)

	finished := r.now()
	job.Status = domain.SyncFailed
	job.CompletedAt = &finished
	job.ActivitiesFound = len(activities)
	job.Error = cause.Error()
	if err := r.Jobs.FinishSyncJob(ctx, job); err != nil {
		log.Error().Err(err).Msg("could not mark sync job failed")
	}
	out.Job = job

	if r.ReportDir != "" {
		if activities == nil {
			activities = []domain.ParsedActivity{}
		}
		path, err := report.WriteArtifact(r.ReportDir, "partial-"+job.ID+".json", partialArtifact{
			JobID: job.ID, ProviderID: job.ProviderID, Error: job.Error, Activities: activities,
		})
		if err != nil {
			log.Error().Err(err).Msg("partial artifact not written")
		}
		out.ArtifactPath = path
	}

	observability.RecordSync(string(job.Status), finished.Sub(job.StartedAt), finished)
	r.publish(ctx, events.TypeSyncFailed, events.SyncData{JobID: job.ID, ProviderID: job.ProviderID, Error: job.Error})
	log.Error().Err(cause).Int("activities", len(activities)).Msg("sync failed")
	return out, fmt.Errorf("sync %s: %w", job.ID, cause)
}

// publish tags events with the request that triggered the run, if any.
func (r *Runner) publish(ctx context.Context, typ string, data any) {
	if r.Events == nil {
		return
	}
	r.Events.Publish(events.MakeEvent(logging.RequestID(ctx), typ, 1, data))
}
