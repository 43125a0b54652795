// Package report builds the per-run summary and writes run artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"activitytracker-engine/internal/collect"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/reconcile"
)

type PriceRange struct {
	Min *decimal.Decimal `json:"min"`
	Max *decimal.Decimal `json:"max"`
}

type FailedSection struct {
	Category string `json:"category"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

type Report struct {
	JobID           string                      `json:"jobId,omitempty"`
	Timestamp       time.Time                   `json:"timestamp"`
	DurationSeconds float64                     `json:"durationSeconds"`
	ActivitiesFound int                         `json:"activitiesFound"`
	Created         int                         `json:"created"`
	Updated         int                         `json:"updated"`
	Removed         int                         `json:"removed"`
	Errors          int                         `json:"errors"`
	ByCategory      map[string]int              `json:"byCategory"`
	ByAvailability  map[domain.Availability]int `json:"byAvailability"`
	PriceRange      PriceRange                  `json:"priceRange"`
	FailedSections  []FailedSection             `json:"failedSections"`
}

// Build summarizes a finished run. Every requested category appears in
// ByCategory, failed ones with 0.
func Build(started, finished time.Time, categories []string, activities []domain.ParsedActivity,
	sr reconcile.SyncReport, sections []collect.SectionOutcome) Report {
	rep := Report{
		Timestamp:       finished.UTC(),
		DurationSeconds: finished.Sub(started).Seconds(),
		ActivitiesFound: len(activities),
		Created:         sr.Created,
		Updated:         sr.Updated,
		Removed:         sr.Removed,
		Errors:          sr.Errors,
		ByCategory:      map[string]int{},
		ByAvailability:  map[domain.Availability]int{},
		FailedSections:  []FailedSection{},
	}

	for _, c := range categories {
		rep.ByCategory[c] = 0
	}
	for _, a := range activities {
		rep.ByCategory[a.SectionLabel]++
		rep.ByAvailability[a.Availability]++
		if a.Price == nil {
			continue
		}
		if rep.PriceRange.Min == nil || a.Price.LessThan(*rep.PriceRange.Min) {
			p := *a.Price
			rep.PriceRange.Min = &p
		}
		if rep.PriceRange.Max == nil || a.Price.GreaterThan(*rep.PriceRange.Max) {
			p := *a.Price
			rep.PriceRange.Max = &p
		}
	}

	for _, s := range sections {
		if s.Err == nil {
			continue
		}
		rep.FailedSections = append(rep.FailedSections, FailedSection{
			Category: s.Category, Attempts: s.Attempts, Error: s.Err.Error(),
		})
	}
	sort.Slice(rep.FailedSections, func(i, j int) bool {
		return rep.FailedSections[i].Category < rep.FailedSections[j].Category
	})
	return rep
}

// Write stores rep as sync-report-<timestamp>.json under dir.
func Write(dir string, rep Report) (string, error) {
	name := fmt.Sprintf("sync-report-%s.json", rep.Timestamp.UTC().Format("20060102T150405Z"))
	return WriteArtifact(dir, name, rep)
}

// WriteArtifact writes v as indented JSON to dir/name via a temp file.
func WriteArtifact(dir, name string, v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}
