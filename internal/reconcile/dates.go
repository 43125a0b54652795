package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"activitytracker-engine/internal/domain"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ResolveDates turns "Mon D[ YYYY]" tokens into dates. A start without a
// year takes the year of now and an end without one takes the start's
// year, moving to the following year when it would fall before the start.
// Nil tokens resolve to nil dates.
func ResolveDates(tokens *domain.DateTokens, now time.Time) (start, end *time.Time, err error) {
	if tokens == nil {
		return nil, nil, nil
	}
	s, _, err := parseDateToken(tokens.StartToken, now.Year())
	if err != nil {
		return nil, nil, err
	}
	e, eYear, err := parseDateToken(tokens.EndToken, s.Year())
	if err != nil {
		return nil, nil, err
	}
	if !eYear && e.Before(s) {
		e = e.AddDate(1, 0, 0)
	}
	return &s, &e, nil
}

func parseDateToken(tok string, defaultYear int) (t time.Time, explicitYear bool, err error) {
	f := strings.Fields(tok)
	if len(f) < 2 || len(f) > 3 || len(f[0]) < 3 {
		return time.Time{}, false, fmt.Errorf("unparseable date %q", tok)
	}
	m, ok := months[strings.ToLower(f[0][:3])]
	if !ok {
		return time.Time{}, false, fmt.Errorf("unknown month in %q", tok)
	}
	day, err := strconv.Atoi(f[1])
	if err != nil {
		return time.Time{}, false, fmt.Errorf("bad day in %q", tok)
	}
	year := defaultYear
	if len(f) == 3 {
		if year, err = strconv.Atoi(f[2]); err != nil {
			return time.Time{}, false, fmt.Errorf("bad year in %q", tok)
		}
		explicitYear = true
	}

	t = time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 to Mar 2
	if t.Month() != m || t.Day() != day {
		return time.Time{}, false, fmt.Errorf("no such date %q", tok)
	}
	return t, explicitYear, nil
}
