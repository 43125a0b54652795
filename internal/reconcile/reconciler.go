// Package reconcile applies one run's activities to the persistent catalog:
// create what is new, refresh what was seen again, and soft-delete the
// rest.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/identity"
	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/parse"
)

// Catalog is the persistence the reconciler needs. Implemented by
// store.DB (sqlite) and postgres.Repository.
type Catalog interface {
	DeactivateProvider(ctx context.Context, providerID string, now time.Time) (int64, error)
	UpsertEntry(ctx context.Context, e domain.CatalogEntry) (created bool, err error)
	// CountRemoved counts entries tombstoned at the given time and not
	// reactivated since.
	CountRemoved(ctx context.Context, providerID string, tombstonedAt time.Time) (int, error)
	UpsertLocation(ctx context.Context, loc domain.Location) error
}

type SyncReport struct {
	Created      int           `json:"created"`
	Updated      int           `json:"updated"`
	Removed      int           `json:"removed"`
	Errors       int           `json:"errors"`
	RecordErrors []RecordError `json:"-"`
}

type Reconciler struct {
	catalog  Catalog
	policy   identity.FallbackPolicy
	validate *validator.Validate

	// Now is the clock used for timestamps and for anchoring yearless dates.
	Now func() time.Time
}

func New(catalog Catalog, policy identity.FallbackPolicy) *Reconciler {
	return &Reconciler{
		catalog:  catalog,
		policy:   policy,
		validate: validator.New(),
		Now:      time.Now,
	}
}

// Reconcile tombstones every active entry of the provider, upserts each
// activity (reactivating it), and counts the entries this run tombstoned
// that stayed inactive. Entries removed by earlier runs are not counted again. It is not a single
// transaction: a failure mid-way leaves earlier upserts in place, and the
// next successful run converges the catalog.
func (r *Reconciler) Reconcile(ctx context.Context, providerID string, activities []domain.ParsedActivity) (SyncReport, error) {
	ctx, log := logging.WithComponent(ctx, "reconcile")
	var rep SyncReport

	if err := ctx.Err(); err != nil {
		return rep, &FatalError{Op: "start", Err: err}
	}

	now := r.Now()
	flipped, err := r.catalog.DeactivateProvider(ctx, providerID, now)
	if err != nil {
		return rep, &FatalError{Op: "tombstone", Err: err}
	}
	log.Debug().Str("provider", providerID).Int64("tombstoned", flipped).Msg("provider entries marked inactive")

	for _, a := range activities {
		if err := ctx.Err(); err != nil {
			return rep, &FatalError{Op: "upsert", Err: err}
		}

		created, err := r.apply(ctx, log, providerID, a, now)
		if err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				return rep, err
			}
			rerr := RecordError{ExternalID: identity.Key(a, r.policy), Name: a.Name, Err: err}
			log.Warn().Err(err).Str("external_id", rerr.ExternalID).Str("name", a.Name).Msg("record skipped")
			rep.Errors++
			rep.RecordErrors = append(rep.RecordErrors, rerr)
			continue
		}
		if created {
			rep.Created++
		} else {
			rep.Updated++
		}
	}

	removed, err := r.catalog.CountRemoved(ctx, providerID, now)
	if err != nil {
		return rep, &FatalError{Op: "count", Err: err}
	}
	rep.Removed = removed

	log.Info().
		Str("provider", providerID).
		Int("created", rep.Created).
		Int("updated", rep.Updated).
		Int("removed", rep.Removed).
		Int("errors", rep.Errors).
		Msg("reconcile finished")
	return rep, nil
}

func (r *Reconciler) apply(ctx context.Context, log *zerolog.Logger, providerID string, a domain.ParsedActivity, now time.Time) (bool, error) {
	start, end, err := ResolveDates(a.Dates, now)
	if err != nil {
		return false, err
	}

	if a.DaysOfWeek == nil {
		a.DaysOfWeek = []string{}
	}
	e := domain.CatalogEntry{
		ParsedActivity: a,
		ProviderID:     providerID,
		ExternalID:     identity.Key(a, r.policy),
		StartDate:      start,
		EndDate:        end,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastSeenAt:     now,
	}
	if err := r.validate.Struct(e); err != nil {
		return false, err
	}

	if a.Location != nil {
		loc := domain.Location{Name: *a.Location, FacilityType: parse.FacilityType(*a.Location)}
		if err := r.catalog.UpsertLocation(ctx, loc); err != nil {
			log.Warn().Err(err).Str("location", loc.Name).Msg("location not recorded")
		}
	}

	created, err := r.catalog.UpsertEntry(ctx, e)
	if err != nil && ctx.Err() != nil {
		return false, &FatalError{Op: "upsert", Err: ctx.Err()}
	}
	return created, err
}
