// Package postgres is the Postgres-backed catalog, used when
// store.driver is "postgres".
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/store"
)

//go:embed migrations/0001_init.sql
var initSQL string

// Repository provides Postgres-backed persistence for catalog entries and sync jobs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pool, waits for the server and applies the schema.
func Connect(ctx context.Context, connStr string) (*Repository, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	r := NewRepository(pool)
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, initSQL); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) DeactivateProvider(ctx context.Context, providerID string, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE catalog_entries SET is_active = FALSE, updated_at = $2
        WHERE provider_id = $1 AND is_active`, providerID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("deactivate provider %s: %w", providerID, err)
	}
	return tag.RowsAffected(), nil
}

// UpsertEntry reports created=true when the row did not exist. xmax is
// zero only for freshly inserted tuples.
func (r *Repository) UpsertEntry(ctx context.Context, e domain.CatalogEntry) (bool, error) {
	const query = `INSERT INTO catalog_entries (provider_id, external_id, name, course_code, date_start_token,
            date_end_token, start_date, end_date, days_of_week, time_start, time_end, age_min, age_max, location,
            price, availability, spots_available, registration_url, section_label, raw_text, is_active,
            created_at, updated_at, last_seen_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15::numeric,$16,$17,$18,$19,$20,$21,$22,$23,$24)
        ON CONFLICT (provider_id, external_id) DO UPDATE SET
            name = EXCLUDED.name, course_code = EXCLUDED.course_code,
            date_start_token = EXCLUDED.date_start_token, date_end_token = EXCLUDED.date_end_token,
            start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date,
            days_of_week = EXCLUDED.days_of_week, time_start = EXCLUDED.time_start, time_end = EXCLUDED.time_end,
            age_min = EXCLUDED.age_min, age_max = EXCLUDED.age_max, location = EXCLUDED.location,
            price = EXCLUDED.price, availability = EXCLUDED.availability,
            spots_available = EXCLUDED.spots_available, registration_url = EXCLUDED.registration_url,
            section_label = EXCLUDED.section_label, raw_text = EXCLUDED.raw_text,
            is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at, last_seen_at = EXCLUDED.last_seen_at
        RETURNING (xmax = 0)`

	var (
		dateStart, dateEnd *string
		timeStart, timeEnd *string
		ageMin, ageMax     *int
		price              *string
	)
	if e.Dates != nil {
		dateStart, dateEnd = &e.Dates.StartToken, &e.Dates.EndToken
	}
	if e.Time != nil {
		timeStart, timeEnd = &e.Time.Start, &e.Time.End
	}
	if e.AgeRange != nil {
		ageMin, ageMax = &e.AgeRange.Min, &e.AgeRange.Max
	}
	if e.Price != nil {
		p := e.Price.StringFixed(store.PriceScale)
		price = &p
	}
	days := e.DaysOfWeek
	if days == nil {
		days = []string{}
	}

	var created bool
	err := r.pool.QueryRow(ctx, query,
		e.ProviderID, e.ExternalID, e.Name, e.CourseCode, dateStart,
		dateEnd, utcPtr(e.StartDate), utcPtr(e.EndDate), days, timeStart, timeEnd, ageMin, ageMax, e.Location,
		price, string(e.Availability), e.SpotsAvailable, e.RegistrationURL, e.SectionLabel, e.RawText, e.IsActive,
		e.CreatedAt.UTC(), e.UpdatedAt.UTC(), e.LastSeenAt.UTC(),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upsert entry %s: %w", e.ExternalID, err)
	}
	return created, nil
}

// CountRemoved counts entries stamped by the tombstone at tombstonedAt that
// no upsert reactivated.
func (r *Repository) CountRemoved(ctx context.Context, providerID string, tombstonedAt time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM catalog_entries
        WHERE provider_id = $1 AND NOT is_active AND updated_at = $2`,
		providerID, tombstonedAt.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count removed: %w", err)
	}
	return n, nil
}

func (r *Repository) UpsertLocation(ctx context.Context, loc domain.Location) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO locations (name, address, city, province, facility_type)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (name, address) DO UPDATE SET
            city = COALESCE(NULLIF(EXCLUDED.city, ''), locations.city),
            province = COALESCE(NULLIF(EXCLUDED.province, ''), locations.province),
            facility_type = COALESCE(NULLIF(EXCLUDED.facility_type, ''), locations.facility_type)`,
		loc.Name, loc.Address, loc.City, loc.Province, loc.FacilityType)
	if err != nil {
		return fmt.Errorf("upsert location %q: %w", loc.Name, err)
	}
	return nil
}

const entryColumns = `provider_id, external_id, name, course_code, date_start_token, date_end_token,
    start_date, end_date, days_of_week, time_start, time_end, age_min, age_max, location, price::text,
    availability, spots_available, registration_url, section_label, raw_text, is_active,
    created_at, updated_at, last_seen_at`

func (r *Repository) GetEntry(ctx context.Context, providerID, externalID string) (domain.CatalogEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM catalog_entries
        WHERE provider_id = $1 AND external_id = $2`, providerID, externalID)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CatalogEntry{}, store.ErrNotFound
	}
	return e, err
}

func (r *Repository) ListEntries(ctx context.Context, opts store.ListEntriesOpts) ([]domain.CatalogEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if opts.ProviderID != "" {
		add("provider_id = $%d", opts.ProviderID)
	}
	if opts.Active != nil {
		add("is_active = $%d", *opts.Active)
	}
	if opts.Category != "" {
		add("section_label = $%d", opts.Category)
	}
	if opts.Limit <= 0 || opts.Limit > 5000 {
		opts.Limit = 500
	}

	q := `SELECT ` + entryColumns + ` FROM catalog_entries`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit)
	q += fmt.Sprintf(" ORDER BY section_label, name, external_id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, q, args...)
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

func scanEntry(row pgx.Row) (domain.CatalogEntry, error) {
	var (
		e                  domain.CatalogEntry
		dateStart, dateEnd *string
		timeStart, timeEnd *string
		ageMin, ageMax     *int
		price              *string
		availability       string
	)
	if err := row.Scan(
		&e.ProviderID, &e.ExternalID, &e.Name, &e.CourseCode, &dateStart, &dateEnd,
		&e.StartDate, &e.EndDate, &e.DaysOfWeek, &timeStart, &timeEnd, &ageMin, &ageMax, &e.Location, &price,
		&availability, &e.SpotsAvailable, &e.RegistrationURL, &e.SectionLabel, &e.RawText, &e.IsActive,
		&e.CreatedAt, &e.UpdatedAt, &e.LastSeenAt,
	); err != nil {
		return domain.CatalogEntry{}, err
	}
	if dateStart != nil || dateEnd != nil {
		e.Dates = &domain.DateTokens{StartToken: deref(dateStart), EndToken: deref(dateEnd)}
	}
	if timeStart != nil {
		e.Time = &domain.TimeRange{Start: *timeStart, End: deref(timeEnd)}
	}
	if ageMin != nil && ageMax != nil {
		e.AgeRange = &domain.AgeRange{Min: *ageMin, Max: *ageMax}
	}
	if price != nil {
		p, err := decimal.NewFromString(*price)
		if err != nil {
			return domain.CatalogEntry{}, fmt.Errorf("entry %s price %q: %w", e.ExternalID, *price, err)
		}
		e.Price = &p
	}
	e.Availability = domain.Availability(availability)
	return e, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
