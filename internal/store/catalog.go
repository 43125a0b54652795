package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"activitytracker-engine/internal/domain"
)

var ErrNotFound = errors.New("not found")

// PriceScale is the number of decimals prices are stored with, by every driver.
const PriceScale = 2

type ListEntriesOpts struct {
	ProviderID string
	Active     *bool  // nil = both
	Category   string // section label, exact match
	Limit      int
}

const entryColumns = `provider_id, external_id, name, course_code, date_start_token, date_end_token,
  start_date, end_date, days_of_week, time_start, time_end, age_min, age_max, location, price,
  availability, spots_available, registration_url, section_label, raw_text, is_active,
  created_at, updated_at, last_seen_at`

// DeactivateProvider marks every active entry of the provider inactive and
// returns how many rows flipped.
func (d *DB) DeactivateProvider(ctx context.Context, providerID string, now time.Time) (int64, error) {
	res, err := d.Pool.ExecContext(ctx, `
UPDATE catalog_entries SET is_active = 0, updated_at = ?
WHERE provider_id = ? AND is_active = 1;`, formatTime(now), providerID)
	if err != nil {
		return 0, fmt.Errorf("deactivate provider %s: %w", providerID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpsertEntry inserts the entry or overwrites the existing row with the
// same (provider_id, external_id). CreatedAt of an existing row is kept.
func (d *DB) UpsertEntry(ctx context.Context, e domain.CatalogEntry) (created bool, err error) {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
SELECT id FROM catalog_entries WHERE provider_id = ? AND external_id = ?;`,
		e.ProviderID, e.ExternalID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
	case err != nil:
		return false, fmt.Errorf("lookup entry %s: %w", e.ExternalID, err)
	}

	args, err := entryArgs(e)
	if err != nil {
		return false, err
	}

	if created {
		_, err = tx.ExecContext(ctx, `
INSERT INTO catalog_entries (`+entryColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`, args...)
	} else {
		// every column but provider_id, external_id and created_at
		upd := append([]any{}, args[2:21]...)
		upd = append(upd, args[22], args[23], id)
		_, err = tx.ExecContext(ctx, `
UPDATE catalog_entries SET
  name = ?, course_code = ?, date_start_token = ?, date_end_token = ?, start_date = ?, end_date = ?,
  days_of_week = ?, time_start = ?, time_end = ?, age_min = ?, age_max = ?, location = ?, price = ?,
  availability = ?, spots_available = ?, registration_url = ?, section_label = ?, raw_text = ?,
  is_active = ?, updated_at = ?, last_seen_at = ?
WHERE id = ?;`, upd...)
	}
	if err != nil {
		return false, fmt.Errorf("upsert entry %s: %w", e.ExternalID, err)
	}
	return created, tx.Commit()
}

// CountRemoved counts inactive entries whose updated_at is the tombstone
// time. DeactivateProvider only stamps rows that were active, and an upsert
// reactivates a row, so these are exactly the rows dropped by that run.
func (d *DB) CountRemoved(ctx context.Context, providerID string, tombstonedAt time.Time) (int, error) {
	var n int
	err := d.Pool.QueryRowContext(ctx, `
SELECT COUNT(*) FROM catalog_entries
WHERE provider_id = ? AND is_active = 0 AND updated_at = ?;`, providerID, formatTime(tombstonedAt)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count removed: %w", err)
	}
	return n, nil
}

func (d *DB) UpsertLocation(ctx context.Context, loc domain.Location) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO locations (name, address, city, province, facility_type)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name, address) DO UPDATE SET
  city = COALESCE(NULLIF(excluded.city, ''), locations.city),
  province = COALESCE(NULLIF(excluded.province, ''), locations.province),
  facility_type = COALESCE(NULLIF(excluded.facility_type, ''), locations.facility_type);`,
		loc.Name, loc.Address, loc.City, loc.Province, loc.FacilityType)
	if err != nil {
		return fmt.Errorf("upsert location %q: %w", loc.Name, err)
	}
	return nil
}

func (d *DB) GetEntry(ctx context.Context, providerID, externalID string) (domain.CatalogEntry, error) {
	row := d.Pool.QueryRowContext(ctx, `
SELECT `+entryColumns+` FROM catalog_entries WHERE provider_id = ? AND external_id = ?;`,
		providerID, externalID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CatalogEntry{}, ErrNotFound
	}
	return e, err
}

func (d *DB) ListEntries(ctx context.Context, opts ListEntriesOpts) ([]domain.CatalogEntry, error) {
	var (
		where []string
		args  []any
	)
	if opts.ProviderID != "" {
		where = append(where, "provider_id = ?")
		args = append(args, opts.ProviderID)
	}
	if opts.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, boolInt(*opts.Active))
	}
	if opts.Category != "" {
		where = append(where, "section_label = ?")
		args = append(args, opts.Category)
	}
	if opts.Limit <= 0 || opts.Limit > 5000 {
		opts.Limit = 500
	}

	q := `SELECT ` + entryColumns + ` FROM catalog_entries`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY section_label, name, external_id LIMIT ?;"
	args = append(args, opts.Limit)

	rows, err := d.Pool.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CatalogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func entryArgs(e domain.CatalogEntry) ([]any, error) {
	days := e.DaysOfWeek
	if days == nil {
		days = []string{}
	}
	daysJSON, err := json.Marshal(days)
	if err != nil {
		return nil, err
	}

	var startTok, endTok, timeStart, timeEnd, price sql.NullString
	var ageMin, ageMax sql.NullInt64
	if e.Dates != nil {
		startTok = sql.NullString{String: e.Dates.StartToken, Valid: true}
		endTok = sql.NullString{String: e.Dates.EndToken, Valid: true}
	}
	if e.Time != nil {
		timeStart = sql.NullString{String: e.Time.Start, Valid: true}
		timeEnd = sql.NullString{String: e.Time.End, Valid: true}
	}
	if e.AgeRange != nil {
		ageMin = sql.NullInt64{Int64: int64(e.AgeRange.Min), Valid: true}
		ageMax = sql.NullInt64{Int64: int64(e.AgeRange.Max), Valid: true}
	}
	if e.Price != nil {
		price = sql.NullString{String: e.Price.StringFixed(PriceScale), Valid: true}
	}

	return []any{
		e.ProviderID, e.ExternalID, e.Name, nullString(e.CourseCode), startTok, endTok,
		nullTime(e.StartDate), nullTime(e.EndDate), string(daysJSON), timeStart, timeEnd, ageMin, ageMax,
		nullString(e.Location), price, string(e.Availability), e.SpotsAvailable,
		nullString(e.RegistrationURL), e.SectionLabel, e.RawText, boolInt(e.IsActive),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt), formatTime(e.LastSeenAt),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (domain.CatalogEntry, error) {
	var (
		e                                   domain.CatalogEntry
		courseCode, startTok, endTok        sql.NullString
		startDate, endDate                  sql.NullString
		daysJSON                            string
		timeStart, timeEnd, location, price sql.NullString
		regURL                              sql.NullString
		ageMin, ageMax                      sql.NullInt64
		availability                        string
		active                              int
		createdAt, updatedAt, lastSeenAt    string
	)
	if err := r.Scan(
		&e.ProviderID, &e.ExternalID, &e.Name, &courseCode, &startTok, &endTok,
		&startDate, &endDate, &daysJSON, &timeStart, &timeEnd, &ageMin, &ageMax,
		&location, &price, &availability, &e.SpotsAvailable,
		&regURL, &e.SectionLabel, &e.RawText, &active,
		&createdAt, &updatedAt, &lastSeenAt,
	); err != nil {
		return domain.CatalogEntry{}, err
	}

	e.CourseCode = stringPtr(courseCode)
	if startTok.Valid || endTok.Valid {
		e.Dates = &domain.DateTokens{StartToken: startTok.String, EndToken: endTok.String}
	}
	e.StartDate = timePtr(startDate)
	e.EndDate = timePtr(endDate)
	e.DaysOfWeek = []string{}
	_ = json.Unmarshal([]byte(daysJSON), &e.DaysOfWeek)
	if timeStart.Valid {
		e.Time = &domain.TimeRange{Start: timeStart.String, End: timeEnd.String}
	}
	if ageMin.Valid {
		e.AgeRange = &domain.AgeRange{Min: int(ageMin.Int64), Max: int(ageMax.Int64)}
	}
	e.Location = stringPtr(location)
	if price.Valid {
		p, err := decimal.NewFromString(price.String)
		if err != nil {
			return domain.CatalogEntry{}, fmt.Errorf("entry %s price %q: %w", e.ExternalID, price.String, err)
		}
		e.Price = &p
	}
	e.Availability = domain.Availability(availability)
	e.RegistrationURL = stringPtr(regURL)
	e.IsActive = active != 0
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.LastSeenAt = parseTime(lastSeenAt)
	return e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
