// Package identity derives the canonical key of an activity and removes
// duplicates within a single pipeline run.
package identity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"activitytracker-engine/internal/domain"
)

// FallbackPolicy controls how coarse the last-resort compound key is when
// an activity carries neither a course code nor a URL course id.
type FallbackPolicy string

const (
	// FallbackCoarse keys on name|dates|time. Distinct activities sharing
	// all three are merged.
	FallbackCoarse FallbackPolicy = "coarse"
	// FallbackStrict also keys on days, location and age range.
	FallbackStrict FallbackPolicy = "strict"
)

func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackCoarse, nil
	case FallbackCoarse, FallbackStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q", s)
	}
}

var reCourseID = regexp.MustCompile(`courseId=([^&#\s]+)`)

// CourseIDFromURL returns the courseId query value of a registration URL.
func CourseIDFromURL(u string) string {
	m := reCourseID.FindStringSubmatch(u)
	if m == nil {
		return ""
	}
	return m[1]
}

// Key returns the canonical key: the course code, else the URL course id,
// else the pipe-joined fallback compound. The same key is persisted as
// the catalog externalId, so it must not depend on anything that rotates
// between runs when a more stable identifier exists.
func Key(a domain.ParsedActivity, policy FallbackPolicy) string {
	if a.CourseCode != nil && *a.CourseCode != "" {
		return *a.CourseCode
	}
	if a.RegistrationURL != nil {
		if id := CourseIDFromURL(*a.RegistrationURL); id != "" {
			return id
		}
	}
	return fallbackKey(a, policy)
}

func fallbackKey(a domain.ParsedActivity, policy FallbackPolicy) string {
	var dates, clock string
	if a.Dates != nil {
		dates = a.Dates.String()
	}
	if a.Time != nil {
		clock = a.Time.String()
	}
	parts := []string{a.Name, dates, clock}

	if policy == FallbackStrict {
		var loc, ages string
		if a.Location != nil {
			loc = *a.Location
		}
		if a.AgeRange != nil {
			ages = strconv.Itoa(a.AgeRange.Min) + "-" + strconv.Itoa(a.AgeRange.Max)
		}
		parts = append(parts, strings.Join(a.DaysOfWeek, ","), loc, ages)
	}
	return strings.Join(parts, "|")
}
