package identity

import (
	"sort"

	"activitytracker-engine/internal/domain"
)

// Deduper remembers the keys seen during one run. Create a new one per run;
// it is not safe for concurrent use and is meant to be driven from the
// single goroutine that merges batch results.
type Deduper struct {
	policy FallbackPolicy
	seen   map[string]struct{}
}

// NewDeduper returns a Deduper pre-seeded with keys from a resumed run.
func NewDeduper(policy FallbackPolicy, seen ...string) *Deduper {
	d := &Deduper{policy: policy, seen: make(map[string]struct{}, len(seen))}
	for _, k := range seen {
		d.seen[k] = struct{}{}
	}
	return d
}

// Add records the activity and reports whether it is the first with its key.
func (d *Deduper) Add(a domain.ParsedActivity) bool {
	k := Key(a, d.policy)
	if _, dup := d.seen[k]; dup {
		return false
	}
	d.seen[k] = struct{}{}
	return true
}

// Dedupe keeps the first activity for each key, in input order. Later
// duplicates are dropped whole; no fields are merged.
func (d *Deduper) Dedupe(in []domain.ParsedActivity) []domain.ParsedActivity {
	out := make([]domain.ParsedActivity, 0, len(in))
	for _, a := range in {
		if d.Add(a) {
			out = append(out, a)
		}
	}
	return out
}

func (d *Deduper) Len() int { return len(d.seen) }

// Seen returns the recorded keys, sorted.
func (d *Deduper) Seen() []string {
	keys := make([]string, 0, len(d.seen))
	for k := range d.seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dedupe is a one-shot helper for callers without run state.
func Dedupe(in []domain.ParsedActivity, policy FallbackPolicy) []domain.ParsedActivity {
	return NewDeduper(policy).Dedupe(in)
}
