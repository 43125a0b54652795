package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker-engine/internal/checkpoint"
	"activitytracker-engine/internal/collect"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/events"
	"activitytracker-engine/internal/store"
)

type mapCollector struct {
	texts   map[string][]string
	errs    map[string]error
	block   chan struct{} // when set, Collect waits on it
	entered chan struct{}

	mu    sync.Mutex
	calls []string
}

func (m *mapCollector) Name() string { return "map" }

func (m *mapCollector) Collect(ctx context.Context, category string) ([]domain.RawFragment, error) {
	m.mu.Lock()
	m.calls = append(m.calls, category)
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.errs[category]; err != nil {
		return nil, err
	}
	var out []domain.RawFragment
	for _, t := range m.texts[category] {
		out = append(out, domain.RawFragment{SectionLabel: category, Text: t})
	}
	return out, nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(evt string) {
	var e events.Event
	_ = json.Unmarshal([]byte(evt), &e)
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func row(name, code string) string {
	return fmt.Sprintf("%s #%s\nMon 9:00am - 10:00am\n$45.00\nSign Up (3)", name, code)
}

type fixture struct {
	db     *store.DB
	runner *Runner
	events *recorder
	dir    string
}

func newFixture(t *testing.T, c collect.Collector, categories ...string) *fixture {
	t.Helper()
	db, err := store.Open(store.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	dir := t.TempDir()
	rec := &recorder{}
	return &fixture{
		db:     db,
		events: rec,
		dir:    dir,
		runner: &Runner{
			Provider:    domain.Provider{ID: "city", Name: "City Rec", IsActive: true},
			Categories:  categories,
			Collector:   c,
			Catalog:     db,
			Jobs:        db,
			Collect:     collect.Config{Concurrency: 2, SectionTimeout: time.Second},
			Checkpoints: checkpoint.FileStore{Path: filepath.Join(dir, "checkpoint.json")},
			ReportDir:   filepath.Join(dir, "reports"),
			Events:      rec,
		},
	}
}

func TestRun_SectionFailureStillCompletes(t *testing.T) {
	c := &mapCollector{
		texts: map[string][]string{"Aquatics": {row("Swim 101", "123456"), row("Swim 101", "123456")}},
		errs:  map[string]error{"Arts": errors.New("503")},
	}
	f := newFixture(t, c, "Aquatics", "Arts")

	out, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCompleted, out.Job.Status)
	assert.Equal(t, 1, out.Job.Created)
	assert.Equal(t, 1, out.Job.ActivitiesFound)

	stored, err := f.db.GetSyncJob(context.Background(), out.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCompleted, stored.Status)

	require.NotNil(t, out.Report)
	assert.Equal(t, map[string]int{"Aquatics": 1, "Arts": 0}, out.Report.ByCategory)
	require.Len(t, out.Report.FailedSections, 1)
	assert.Equal(t, "Arts", out.Report.FailedSections[0].Category)
	assert.FileExists(t, out.ReportPath)

	_, err = os.Stat(filepath.Join(f.dir, "checkpoint.json"))
	assert.True(t, os.IsNotExist(err), "checkpoint discarded after success")

	assert.Equal(t, []string{events.TypeSyncStarted, events.TypeSectionFailed, events.TypeSyncCompleted}, f.events.types())
}

func TestRun_AllSectionsFailedLeavesCatalogAlone(t *testing.T) {
	ctx := context.Background()
	ok := &mapCollector{texts: map[string][]string{"Aquatics": {row("Swim 101", "123456")}}}
	f := newFixture(t, ok, "Aquatics")
	f.runner.AbortOnTotalFailure = true
	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	f.runner.Collector = &mapCollector{errs: map[string]error{"Aquatics": errors.New("down")}}
	out, err := f.runner.Run(ctx)
	require.ErrorIs(t, err, ErrAllSectionsFailed)
	assert.Equal(t, domain.SyncFailed, out.Job.Status)

	e, err := f.db.GetEntry(ctx, "city", "123456")
	require.NoError(t, err)
	assert.True(t, e.IsActive)
}

func TestRun_AllSectionsFailedStillReconcilesByDefault(t *testing.T) {
	ctx := context.Background()
	ok := &mapCollector{texts: map[string][]string{"Aquatics": {row("Swim 101", "123456")}}}
	f := newFixture(t, ok, "Aquatics")
	_, err := f.runner.Run(ctx)
	require.NoError(t, err)

	f.runner.Collector = &mapCollector{errs: map[string]error{"Aquatics": errors.New("down")}}
	out, err := f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCompleted, out.Job.Status)
	assert.Equal(t, 1, out.Job.Removed)

	e, err := f.db.GetEntry(ctx, "city", "123456")
	require.NoError(t, err)
	assert.False(t, e.IsActive)
}

type brokenCatalog struct{ *store.DB }

func (brokenCatalog) DeactivateProvider(context.Context, string, time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRun_FatalReconcileMarksJobFailedAndKeepsArtifact(t *testing.T) {
	ctx := context.Background()
	c := &mapCollector{texts: map[string][]string{"Aquatics": {row("Swim 101", "123456")}}}
	f := newFixture(t, c, "Aquatics")
	f.runner.Catalog = brokenCatalog{f.db}

	out, err := f.runner.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	stored, err := f.db.GetSyncJob(ctx, out.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncFailed, stored.Status)
	assert.Contains(t, stored.Error, "tombstone")

	b, err := os.ReadFile(out.ArtifactPath)
	require.NoError(t, err)
	var art partialArtifact
	require.NoError(t, json.Unmarshal(b, &art))
	require.Len(t, art.Activities, 1)
	assert.Equal(t, "Swim 101", art.Activities[0].Name)

	assert.FileExists(t, filepath.Join(f.dir, "checkpoint.json"), "checkpoint kept for resume")
	assert.Contains(t, f.events.types(), events.TypeSyncFailed)
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	c := &mapCollector{texts: map[string][]string{
		"Aquatics": {row("Swim 101", "111111")},
		"Sports":   {row("Soccer Tots", "222222")},
	}}
	f := newFixture(t, c, "Aquatics", "Sports")

	code := "111111"
	st := checkpoint.New()
	st.Activities = []domain.ParsedActivity{{
		Name: "Swim 101", CourseCode: &code, DaysOfWeek: []string{}, Availability: domain.AvailabilityOpen, SectionLabel: "Aquatics",
	}}
	st.SeenIDs = []string{code}
	st.MarkProcessed("Aquatics")
	require.NoError(t, checkpoint.FileStore{Path: filepath.Join(f.dir, "checkpoint.json")}.Save(st))

	out, err := f.runner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sports"}, c.calls)
	assert.Equal(t, 2, out.Job.Created)
}

func TestTracker_SingleFlight(t *testing.T) {
	c := &mapCollector{
		texts:   map[string][]string{"Aquatics": {row("Swim 101", "123456")}},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	f := newFixture(t, c, "Aquatics")
	tr := NewTracker()

	done := make(chan error, 1)
	go func() {
		_, err := tr.RunOnce(context.Background(), f.runner)
		done <- err
	}()
	<-c.entered
	assert.True(t, tr.Snapshot().Running)

	_, err := tr.RunOnce(context.Background(), f.runner)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(c.block)
	require.NoError(t, <-done)

	st := tr.Snapshot()
	assert.False(t, st.Running)
	assert.Equal(t, 1, st.LastCreated)
	assert.NotEmpty(t, st.LastOkAt)
	assert.True(t, strings.Count(st.LastJobID, "-") == 4)
}
