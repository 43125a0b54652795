package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"activitytracker-engine/internal/domain"
)

const swimRow = `Swim 101 #123456
Jan 6 - Mar 10
Mon, Wed 9:00am - 10:00am
3 - 5 yrs
Hillcrest Community Centre
$45.00
Sign Up (3)
https://reg.example.org/courses?courseId=ABC123`

func TestParse_FullRow(t *testing.T) {
	a, ok := Parse(domain.RawFragment{SectionLabel: "Swimming", Text: swimRow})
	require.True(t, ok)
	require.NotNil(t, a)

	assert.Equal(t, "Swim 101", a.Name)
	require.NotNil(t, a.CourseCode)
	assert.Equal(t, "123456", *a.CourseCode)
	require.NotNil(t, a.Dates)
	assert.Equal(t, "Jan 6", a.Dates.StartToken)
	assert.Equal(t, "Mar 10", a.Dates.EndToken)
	assert.Equal(t, []string{"Mon", "Wed"}, a.DaysOfWeek)
	require.NotNil(t, a.Time)
	assert.Equal(t, "9:00am", a.Time.Start)
	assert.Equal(t, "10:00am", a.Time.End)
	require.NotNil(t, a.AgeRange)
	assert.Equal(t, domain.AgeRange{Min: 3, Max: 5}, *a.AgeRange)
	require.NotNil(t, a.Location)
	assert.Equal(t, "Hillcrest Community Centre", *a.Location)
	require.NotNil(t, a.Price)
	assert.Equal(t, "45.00", a.Price.StringFixed(2))
	assert.Equal(t, domain.AvailabilityOpen, a.Availability)
	assert.Equal(t, 3, a.SpotsAvailable)
	require.NotNil(t, a.RegistrationURL)
	assert.Equal(t, "https://reg.example.org/courses?courseId=ABC123", *a.RegistrationURL)
	assert.Equal(t, "Swimming", a.SectionLabel)
	assert.Equal(t, swimRow, a.RawText)
}

func TestParse_SkipsIncidentalText(t *testing.T) {
	for _, text := range []string{
		"Welcome to our recreation programs",
		"",
		"Browse by category below",
	} {
		a, ok := Parse(domain.RawFragment{SectionLabel: "Swimming", Text: text})
		assert.False(t, ok, text)
		assert.Nil(t, a)
	}
}

func TestParse_RejectsShortOrHeaderNames(t *testing.T) {
	_, ok := Parse(domain.RawFragment{Text: "Course\n$10.00"})
	assert.False(t, ok)

	_, ok = Parse(domain.RawFragment{Text: "Art #654321\n$10.00"})
	assert.False(t, ok, "name is only 3 characters once the course code is stripped")
}

func TestParse_SingleSignalIsEnough(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"price", "Pottery Wheel\n$120"},
		{"action", "Pottery Wheel\nWaitlist"},
		{"time", "Pottery Wheel\n6:30 p.m. - 8:00 p.m."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, ok := Parse(domain.RawFragment{Text: tt.text})
			require.True(t, ok)
			assert.Equal(t, "Pottery Wheel", a.Name)
		})
	}
}

func TestParse_Price(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Summer Day Camp\n$1,250.50 per week"})
	require.True(t, ok)
	require.NotNil(t, a.Price)
	assert.Equal(t, "1250.50", a.Price.StringFixed(2))

	a, ok = Parse(domain.RawFragment{Text: "Drop-in Skate\nSign Up"})
	require.True(t, ok)
	assert.Nil(t, a.Price)
}

func TestParse_TimeWithPeriods(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Evening Yoga\n6:30 P.M. – 7:45 p.m."})
	require.True(t, ok)
	require.NotNil(t, a.Time)
	assert.Equal(t, domain.TimeRange{Start: "6:30pm", End: "7:45pm"}, *a.Time)
}

func TestParse_DaysCollapseAndOrder(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Tennis Lessons\nSaturday and Tuesday, Tue again, Sundays\n$30"})
	require.True(t, ok)
	assert.Equal(t, []string{"Tue", "Sat", "Sun"}, a.DaysOfWeek)

	a, ok = Parse(domain.RawFragment{Text: "Tennis Lessons\n$30"})
	require.True(t, ok)
	assert.Empty(t, a.DaysOfWeek)
}

func TestParse_AgeRange(t *testing.T) {
	tests := []struct {
		text string
		want *domain.AgeRange
	}{
		{"Little Kickers\n4 - 6 yrs\n$20", &domain.AgeRange{Min: 4, Max: 6}},
		{"Teen Climbing\n13+ yrs\n$20", &domain.AgeRange{Min: 13, Max: 18}},
		{"Teen Climbing\n10 yrs\n$20", &domain.AgeRange{Min: 10, Max: 18}},
		{"Adult Climbing\n19+ yrs\n$20", &domain.AgeRange{Min: 19, Max: 19}},
		{"Youth Leadership\nAges 16 - 18+ yrs\n$20", &domain.AgeRange{Min: 16, Max: 18}},
		{"Odd Listing\n9 - 4 yrs\n$20", nil},
		{"No Ages Here\n$20", nil},
	}
	for _, tt := range tests {
		a, ok := Parse(domain.RawFragment{Text: tt.text})
		require.True(t, ok, tt.text)
		assert.Equal(t, tt.want, a.AgeRange, tt.text)
	}
}

func TestParse_AvailabilityPriority(t *testing.T) {
	tests := []struct {
		text string
		want domain.Availability
	}{
		{"Ballet Basics\nSign Up (2)\nWaitlist\nClosed", domain.AvailabilityClosed},
		{"Ballet Basics\nFull", domain.AvailabilityClosed},
		{"Ballet Basics\nStatus: Full", domain.AvailabilityClosed},
		{"Ballet Basics\nSign Up (Full)", domain.AvailabilityClosed},
		{"Full Day Camp\nSign Up (5)", domain.AvailabilityOpen},
		{"Fullerton Swim Club\nSign Up (5)", domain.AvailabilityOpen},
		{"Ballet Basics\nSign Up\nWaitlist", domain.AvailabilityWaitlist},
		{"Ballet Basics\nSign Up (12)", domain.AvailabilityOpen},
		{"Ballet Basics\n$55.00", domain.AvailabilityUnknown},
	}
	for _, tt := range tests {
		a, ok := Parse(domain.RawFragment{Text: tt.text})
		require.True(t, ok)
		assert.Equal(t, tt.want, a.Availability, tt.text)
	}
}

func TestParse_FullInNameIsNotClosed(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Full Day Camp #222222 $200.00 Sign Up (5)"})
	require.True(t, ok)
	assert.Equal(t, domain.AvailabilityOpen, a.Availability)
	assert.Equal(t, 5, a.SpotsAvailable)
	require.NotNil(t, a.CourseCode)
	assert.Equal(t, "222222", *a.CourseCode)
}

func TestParse_SpotsDefaultToZero(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Ballet Basics\nSign Up"})
	require.True(t, ok)
	assert.Equal(t, 0, a.SpotsAvailable)
}

func TestParse_LocationIsTruncated(t *testing.T) {
	long := "Very " + stringsRepeat("Long ", 30) + "Arena"
	a, ok := Parse(domain.RawFragment{Text: "Public Skate\n" + long + "\n$5"})
	require.True(t, ok)
	require.NotNil(t, a.Location)
	assert.LessOrEqual(t, len([]rune(*a.Location)), maxLocationLen)
}

func TestParse_NameIsTruncated(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: stringsRepeat("x", 400) + "\n$5"})
	require.True(t, ok)
	assert.Len(t, []rune(a.Name), maxNameLen)
}

func TestParse_CourseCodeNeedsExactlySixDigits(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Swim Level 3 #1234567\n$40"})
	require.True(t, ok)
	assert.Nil(t, a.CourseCode)
}

func TestParse_DatesWithYearAndFullMonth(t *testing.T) {
	a, ok := Parse(domain.RawFragment{Text: "Winter Camp\nDecember 28, 2025 - January 4, 2026\n$200"})
	require.True(t, ok)
	require.NotNil(t, a.Dates)
	assert.Equal(t, "Dec 28 2025", a.Dates.StartToken)
	assert.Equal(t, "Jan 4 2026", a.Dates.EndToken)
}

func TestParseAll_KeepsOrderAndCountsSkips(t *testing.T) {
	out, skipped := ParseAll([]domain.RawFragment{
		{Text: "Header text only"},
		{Text: "First Activity\n$1"},
		{Text: "Second Activity\n$2"},
	})
	assert.Equal(t, 1, skipped)
	require.Len(t, out, 2)
	assert.Equal(t, "First Activity", out[0].Name)
	assert.Equal(t, "Second Activity", out[1].Name)
}

func stringsRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestFacilityType(t *testing.T) {
	assert.Equal(t, "Centre", FacilityType("Hillcrest Community Centre"))
	assert.Equal(t, "Pool", FacilityType("Park Lane Pool"))
	assert.Equal(t, "", FacilityType("Room 4"))
}
