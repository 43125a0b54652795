package report

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker-engine/internal/collect"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/reconcile"
)

func priced(label, price string, avail domain.Availability) domain.ParsedActivity {
	a := domain.ParsedActivity{Name: "Activity", SectionLabel: label, Availability: avail}
	if price != "" {
		p := decimal.RequireFromString(price)
		a.Price = &p
	}
	return a
}

func TestBuild(t *testing.T) {
	started := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)
	acts := []domain.ParsedActivity{
		priced("Aquatics", "45.00", domain.AvailabilityOpen),
		priced("Aquatics", "12.50", domain.AvailabilityWaitlist),
		priced("Sports", "", domain.AvailabilityOpen),
		priced("Sports", "120", domain.AvailabilityClosed),
	}
	sections := []collect.SectionOutcome{
		{Category: "Aquatics"},
		{Category: "Arts", Attempts: 2, Err: errors.New("timeout")},
		{Category: "Sports"},
	}

	rep := Build(started, finished, []string{"Aquatics", "Arts", "Sports"}, acts,
		reconcile.SyncReport{Created: 3, Updated: 1, Removed: 2, Errors: 1}, sections)

	assert.Equal(t, 90.0, rep.DurationSeconds)
	assert.Equal(t, 4, rep.ActivitiesFound)
	assert.Equal(t, map[string]int{"Aquatics": 2, "Arts": 0, "Sports": 2}, rep.ByCategory)
	assert.Equal(t, 2, rep.ByAvailability[domain.AvailabilityOpen])
	assert.Equal(t, "12.50", rep.PriceRange.Min.StringFixed(2))
	assert.Equal(t, "120.00", rep.PriceRange.Max.StringFixed(2))
	require.Len(t, rep.FailedSections, 1)
	assert.Equal(t, FailedSection{Category: "Arts", Attempts: 2, Error: "timeout"}, rep.FailedSections[0])
}

func TestBuild_NoPrices(t *testing.T) {
	rep := Build(time.Now(), time.Now(), nil, nil, reconcile.SyncReport{}, nil)
	assert.Nil(t, rep.PriceRange.Min)
	assert.NotNil(t, rep.FailedSections)
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	rep := Build(time.Now(), time.Now(), []string{"Aquatics"},
		[]domain.ParsedActivity{priced("Aquatics", "45.00", domain.AvailabilityOpen)}, reconcile.SyncReport{Created: 1}, nil)

	path, err := Write(dir, rep)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.EqualValues(t, 1, got["created"])
	assert.Contains(t, got, "failedSections")
	assert.Equal(t, "45", got["priceRange"].(map[string]any)["min"])
}
