package checkpoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker-engine/internal/domain"
)

func TestFileStore_LoadMissingReturnsFreshState(t *testing.T) {
	fs := FileStore{Path: filepath.Join(t.TempDir(), "nope.json")}
	st, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, Version, st.Version)
	assert.Empty(t, st.Activities)
	assert.Empty(t, st.ProcessedCategories)
}

func TestFileStore_RoundTrip(t *testing.T) {
	fs := FileStore{Path: filepath.Join(t.TempDir(), "sub", "checkpoint.json")}
	code := "123456"
	price := decimal.RequireFromString("45.00")

	st := New()
	st.Activities = append(st.Activities, domain.ParsedActivity{
		Name: "Swim 101", CourseCode: &code, Price: &price,
		DaysOfWeek: []string{"Mon"}, Availability: domain.AvailabilityOpen, SectionLabel: "Aquatics",
	})
	st.SeenIDs = []string{"123456"}
	st.MarkProcessed("Aquatics")
	st.MarkProcessed("Aquatics")
	require.NoError(t, fs.Save(st))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"123456"}, got.SeenIDs)
	assert.Equal(t, []string{"Aquatics"}, got.ProcessedCategories)
	assert.True(t, got.Processed("Aquatics"))
	assert.False(t, got.Processed("Arts"))
	require.Len(t, got.Activities, 1)
	assert.Equal(t, "123456", *got.Activities[0].CourseCode)
	assert.True(t, got.Activities[0].Price.Equal(price))
	assert.False(t, got.Timestamp.IsZero())

	_, err = os.Stat(fs.Path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 7}`), 0o644))

	_, err := FileStore{Path: path}.Load()
	assert.ErrorContains(t, err, "unsupported version")
}

func TestFileStore_Discard(t *testing.T) {
	fs := FileStore{Path: filepath.Join(t.TempDir(), "checkpoint.json")}
	require.NoError(t, fs.Save(New()))
	require.NoError(t, fs.Discard())
	require.NoError(t, fs.Discard())

	_, err := os.Stat(fs.Path)
	assert.True(t, os.IsNotExist(err))
}
