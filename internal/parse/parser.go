// Package parse turns raw text fragments into structured activity candidates.
//
// Every field is extracted independently with a best-effort pattern; a miss
// leaves the field nil and is never an error.
package parse

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"activitytracker-engine/internal/domain"
)

const (
	maxNameLen     = 150
	maxLocationLen = 100
	// Upper bound used when a fragment only says "N yrs" or "N+ yrs".
	youthAgeCeiling = 18
	headerToken     = "Course"
)

// Parse extracts an activity from one fragment. ok is false when the
// fragment has none of the row signals (price, action keyword, time range)
// or no usable name; that is a skip, not a failure.
func Parse(f domain.RawFragment) (a *domain.ParsedActivity, ok bool) {
	text := normalizeText(f.Text)
	if !hasActivitySignal(text) {
		return nil, false
	}

	name := extractName(text)
	if name == "" {
		return nil, false
	}

	return &domain.ParsedActivity{
		Name:            name,
		CourseCode:      extractCourseCode(text),
		Dates:           extractDates(text),
		DaysOfWeek:      extractDays(text),
		Time:            extractTime(text),
		AgeRange:        extractAgeRange(text),
		Location:        extractLocation(text),
		Price:           extractPrice(text),
		Availability:    extractAvailability(text),
		SpotsAvailable:  extractSpots(text),
		RegistrationURL: extractURL(text),
		SectionLabel:    f.SectionLabel,
		RawText:         f.Text,
	}, true
}

// ParseAll parses fragments in order and reports how many were skipped.
func ParseAll(fragments []domain.RawFragment) (out []domain.ParsedActivity, skipped int) {
	out = make([]domain.ParsedActivity, 0, len(fragments))
	for _, f := range fragments {
		a, ok := Parse(f)
		if !ok {
			skipped++
			continue
		}
		out = append(out, *a)
	}
	return out, skipped
}

func hasActivitySignal(text string) bool {
	return rePrice.MatchString(text) ||
		reSignUp.MatchString(text) ||
		reWaitlist.MatchString(text) ||
		reClosed.MatchString(text) ||
		reTimeRange.MatchString(text)
}

func extractName(text string) string {
	line := reCourseCode.ReplaceAllString(firstLine(text), "")
	line = CleanText(line)
	if len([]rune(line)) <= 3 || strings.EqualFold(line, headerToken) {
		return ""
	}
	return truncateRunes(line, maxNameLen)
}

func extractCourseCode(text string) *string {
	m := reCourseCode.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &m[1]
}

func extractPrice(text string) *decimal.Decimal {
	m := rePrice.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "") + m[2])
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

func extractTime(text string) *domain.TimeRange {
	m := reTimeRange.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &domain.TimeRange{
		Start: m[1] + strings.ToLower(m[2]) + "m",
		End:   m[3] + strings.ToLower(m[4]) + "m",
	}
}

func extractDays(text string) []string {
	found := map[string]bool{}
	for _, m := range reDay.FindAllStringSubmatch(text, -1) {
		found[m[1][:3]] = true
	}
	days := make([]string, 0, len(found))
	for _, d := range dayOrder {
		if found[d] {
			days = append(days, d)
		}
	}
	return days
}

func extractAgeRange(text string) *domain.AgeRange {
	if m := reAgeSpan.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		if lo > hi {
			return nil
		}
		return &domain.AgeRange{Min: lo, Max: hi}
	}
	if m := reAgeFrom.FindStringSubmatch(text); m != nil {
		lo, _ := strconv.Atoi(m[1])
		return &domain.AgeRange{Min: lo, Max: max(lo, youthAgeCeiling)}
	}
	return nil
}

func extractLocation(text string) *string {
	for _, line := range strings.Split(text, "\n") {
		if loc := CleanText(reLocation.FindString(line)); loc != "" {
			loc = truncateRunes(loc, maxLocationLen)
			return &loc
		}
	}
	return nil
}

func extractAvailability(text string) domain.Availability {
	switch {
	case reClosed.MatchString(text):
		return domain.AvailabilityClosed
	case reWaitlist.MatchString(text):
		return domain.AvailabilityWaitlist
	case reSignUp.MatchString(text):
		return domain.AvailabilityOpen
	default:
		return domain.AvailabilityUnknown
	}
}

func extractSpots(text string) int {
	m := reSpots.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func extractURL(text string) *string {
	u := reURL.FindString(text)
	u = strings.TrimRight(u, ".,);:]\"'")
	if u == "" {
		return nil
	}
	return &u
}

func extractDates(text string) *domain.DateTokens {
	m := reDateSpan.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	token := func(mon, day, year string) string {
		t := mon + " " + day
		if year != "" {
			t += " " + year
		}
		return t
	}
	return &domain.DateTokens{
		StartToken: token(m[1], m[2], m[3]),
		EndToken:   token(m[4], m[5], m[6]),
	}
}

// FacilityType returns the last facility keyword in a location name
// ("Centre", "Pool", ...), or "" when there is none.
func FacilityType(location string) string {
	m := reFacility.FindAllString(location, -1)
	if len(m) == 0 {
		return ""
	}
	return m[len(m)-1]
}
