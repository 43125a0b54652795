package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker-engine/internal/collect"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/pipeline"
	"activitytracker-engine/internal/store"
)

type staticCollector struct {
	entered chan struct{}
	release chan struct{}
}

func (s *staticCollector) Name() string { return "static" }

func (s *staticCollector) Collect(ctx context.Context, category string) ([]domain.RawFragment, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	return []domain.RawFragment{{
		SectionLabel: category,
		Text:         "Learn to Skate #246810\nSat 10:00am - 11:00am\n$80.00\nSign Up (5)",
	}}, nil
}

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) PruneSyncJobs(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, f.err
}

func newPoller(t *testing.T, c collect.Collector) (*Poller, *store.DB) {
	t.Helper()
	db, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &Poller{
		Tracker: pipeline.NewTracker(),
		NewRunner: func() (*pipeline.Runner, error) {
			return &pipeline.Runner{
				Provider:   domain.Provider{ID: "city", Name: "City", IsActive: true},
				Categories: []string{"Skating"},
				Collector:  c,
				Catalog:    db,
				Jobs:       db,
				Collect:    collect.Config{Concurrency: 1, SectionTimeout: 5 * time.Second},
			}, nil
		},
		Interval: time.Hour,
	}, db
}

func TestSyncOnce(t *testing.T) {
	p, db := newPoller(t, &staticCollector{})
	require.NoError(t, p.SyncOnce(context.Background()))

	e, err := db.GetEntry(context.Background(), "city", "246810")
	require.NoError(t, err)
	assert.True(t, e.IsActive)
	assert.NotEmpty(t, p.Tracker.Snapshot().LastOkAt)
}

func TestSyncOnceSkipsWhenBusy(t *testing.T) {
	c := &staticCollector{entered: make(chan struct{}), release: make(chan struct{})}
	p, _ := newPoller(t, c)

	done := make(chan error, 1)
	go func() { done <- p.SyncOnce(context.Background()) }()
	<-c.entered

	assert.NoError(t, p.SyncOnce(context.Background()))

	close(c.release)
	require.NoError(t, <-done)
}

func TestSyncOnceRunnerError(t *testing.T) {
	p := &Poller{
		Tracker:   pipeline.NewTracker(),
		NewRunner: func() (*pipeline.Runner, error) { return nil, errors.New("no store") },
	}
	assert.EqualError(t, p.SyncOnce(context.Background()), "no store")
}

func TestPruneOnceUsesRetention(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	fp := &fakePruner{}
	p := &Poller{Pruner: fp, KeepJobsDays: 30, Now: func() time.Time { return now }}

	require.NoError(t, p.PruneOnce(context.Background()))
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), fp.cutoff)

	fp.err = errors.New("locked")
	assert.Error(t, p.PruneOnce(context.Background()))
}
