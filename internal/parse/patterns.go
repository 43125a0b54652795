package parse

import "regexp"

var (
	reCourseCode = regexp.MustCompile(`#(\d{6})\b`)
	rePrice      = regexp.MustCompile(`\$(\d+(?:,\d{3})*)(\.\d{2})?`)
	reTimeRange  = regexp.MustCompile(`(?i)(\d{1,2}:\d{2})\s*([ap])\.?\s*m\.?\s*[-–—]\s*(\d{1,2}:\d{2})\s*([ap])\.?\s*m\.?`)
	reDay        = regexp.MustCompile(`\b(Mon(?:day)?|Tue(?:s|sday)?|Wed(?:nesday)?|Thu(?:rs?|rsday)?|Fri(?:day)?|Sat(?:urday)?|Sun(?:day)?)s?\b`)
	reAgeSpan    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*[-–]\s*(\d{1,2})\s*\+?\s*(?:yrs?|years?)\b`)
	reAgeFrom    = regexp.MustCompile(`(?i)\b(\d{1,2})\s*\+?\s*(?:yrs?|years?)\b`)
	reLocation   = regexp.MustCompile(`(?:[A-Za-z'.&-]+[ \t]+)*(?:` + facilityWords + `)\b(?:[ \t]+[A-Za-z'.&-]+)*`)
	reFacility   = regexp.MustCompile(`\b(` + facilityWords + `)\b`)
	reSpots      = regexp.MustCompile(`(?i)sign\s*up\s*\((\d+)\)`)
	reClosed     = regexp.MustCompile(`(?im)\bclosed\b|\bfull\s*$|\(\s*full\s*\)`)
	reWaitlist   = regexp.MustCompile(`(?i)\bwait\s*-?\s*list`)
	reSignUp     = regexp.MustCompile(`(?i)\bsign\s*-?\s*up\b`)
	reURL        = regexp.MustCompile(`https?://[^\s<>"']+`)

	month      = `(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?`
	reDateSpan = regexp.MustCompile(`\b` + month + `\s+(\d{1,2})(?:,?\s+(\d{4}))?\s*[-–]\s*` + month + `\s+(\d{1,2})(?:,?\s+(\d{4}))?\b`)
)

const facilityWords = `Centre|Center|Pool|Arena|Park|Field|Gym|Studio|Complex`

var dayOrder = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
