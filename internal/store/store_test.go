package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker-engine/internal/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureProvider(context.Background(), domain.Provider{ID: "city", Name: "City Rec", IsActive: true}))
	return db
}

func sampleEntry(ext string, now time.Time) domain.CatalogEntry {
	code := ext
	loc := "Hillcrest Community Centre"
	price := decimal.RequireFromString("45.00")
	start := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	return domain.CatalogEntry{
		ParsedActivity: domain.ParsedActivity{
			Name:           "Swim 101",
			CourseCode:     &code,
			Dates:          &domain.DateTokens{StartToken: "Jan 6", EndToken: "Mar 10"},
			DaysOfWeek:     []string{"Mon", "Wed"},
			Time:           &domain.TimeRange{Start: "9:00am", End: "10:00am"},
			AgeRange:       &domain.AgeRange{Min: 3, Max: 5},
			Location:       &loc,
			Price:          &price,
			Availability:   domain.AvailabilityOpen,
			SpotsAvailable: 3,
			SectionLabel:   "Aquatics",
			RawText:        "Swim 101 #" + ext,
		},
		ProviderID: "city",
		ExternalID: ext,
		StartDate:  &start,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastSeenAt: now,
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, schemaVersion, v)
}

func TestUpsertEntry_CreateThenUpdate(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	created, err := db.UpsertEntry(ctx, sampleEntry("123456", t0))
	require.NoError(t, err)
	assert.True(t, created)

	t1 := t0.Add(time.Hour)
	e := sampleEntry("123456", t1)
	e.SpotsAvailable = 0
	e.Availability = domain.AvailabilityWaitlist
	created, err = db.UpsertEntry(ctx, e)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := db.GetEntry(ctx, "city", "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.AvailabilityWaitlist, got.Availability)
	assert.Equal(t, 0, got.SpotsAvailable)
	assert.True(t, got.CreatedAt.Equal(t0), "created_at is preserved")
	assert.True(t, got.UpdatedAt.Equal(t1))
	assert.Equal(t, "45.00", got.Price.StringFixed(2))

	var rawPrice string
	require.NoError(t, db.Pool.QueryRowContext(ctx,
		`SELECT price FROM catalog_entries WHERE external_id = ?;`, "123456").Scan(&rawPrice))
	assert.Equal(t, "45.00", rawPrice, "prices are stored with two decimals")
	assert.Equal(t, []string{"Mon", "Wed"}, got.DaysOfWeek)
	assert.Equal(t, &domain.AgeRange{Min: 3, Max: 5}, got.AgeRange)
	assert.Equal(t, "Jan 6 - Mar 10", got.Dates.String())
	require.NotNil(t, got.StartDate)
	assert.Nil(t, got.EndDate)
	assert.Nil(t, got.RegistrationURL)
}

func TestDeactivateAndCountRemoved(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	now := time.Now()

	for _, ext := range []string{"111111", "222222", "333333"} {
		_, err := db.UpsertEntry(ctx, sampleEntry(ext, now))
		require.NoError(t, err)
	}

	n, err := db.DeactivateProvider(ctx, "city", now)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	_, err = db.UpsertEntry(ctx, sampleEntry("111111", now))
	require.NoError(t, err)

	removed, err := db.CountRemoved(ctx, "city", now)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// a later tombstone only stamps the entry that was still active
	later := now.Add(time.Minute)
	n, err = db.DeactivateProvider(ctx, "city", later)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	removed, err = db.CountRemoved(ctx, "city", later)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = db.UpsertEntry(ctx, sampleEntry("111111", later))
	require.NoError(t, err)

	active := true
	list, err := db.ListEntries(ctx, ListEntriesOpts{ProviderID: "city", Active: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "111111", list[0].ExternalID)
}

func TestGetEntry_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetEntry(context.Background(), "city", "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertLocation_UniqueOnNameAndAddress(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertLocation(ctx, domain.Location{Name: "North Pool"}))
	require.NoError(t, db.UpsertLocation(ctx, domain.Location{Name: "North Pool", FacilityType: "Pool"}))
	require.NoError(t, db.UpsertLocation(ctx, domain.Location{Name: "North Pool", Address: "1 Main St"}))

	var n int
	require.NoError(t, db.Pool.QueryRow(`SELECT COUNT(*) FROM locations;`).Scan(&n))
	assert.Equal(t, 2, n)

	var ft string
	require.NoError(t, db.Pool.QueryRow(`SELECT facility_type FROM locations WHERE address = '';`).Scan(&ft))
	assert.Equal(t, "Pool", ft)
}

func TestSyncJobLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	started := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	job := domain.SyncJob{ID: "job-1", ProviderID: "city", Status: domain.SyncRunning, StartedAt: started}
	require.NoError(t, db.CreateSyncJob(ctx, job))

	done := started.Add(time.Minute)
	job.Status = domain.SyncCompleted
	job.CompletedAt = &done
	job.ActivitiesFound, job.Created, job.Removed = 5, 4, 1
	require.NoError(t, db.FinishSyncJob(ctx, job))

	job.Status = domain.SyncFailed
	assert.ErrorIs(t, db.FinishSyncJob(ctx, job), ErrNotRunning)

	got, err := db.GetSyncJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SyncCompleted, got.Status)
	assert.Equal(t, 4, got.Created)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
}

func TestListAndPruneSyncJobs(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.CreateSyncJob(ctx, domain.SyncJob{
			ID: id, ProviderID: "city", Status: domain.SyncRunning, StartedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, db.FinishSyncJob(ctx, domain.SyncJob{ID: "a", Status: domain.SyncFailed, Error: "boom"}))

	jobs, err := db.ListSyncJobs(ctx, "city", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{jobs[0].ID, jobs[1].ID, jobs[2].ID})

	n, err := db.PruneSyncJobs(ctx, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "running jobs are never pruned")
}
