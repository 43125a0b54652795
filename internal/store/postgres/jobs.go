package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/store"
)

func (r *Repository) EnsureProvider(ctx context.Context, p domain.Provider) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO providers (id, name, website, is_active)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, website = EXCLUDED.website, is_active = EXCLUDED.is_active`,
		p.ID, p.Name, p.Website, p.IsActive)
	if err != nil {
		return fmt.Errorf("ensure provider %s: %w", p.ID, err)
	}
	return nil
}

func (r *Repository) CreateSyncJob(ctx context.Context, j domain.SyncJob) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sync_jobs (id, provider_id, status, started_at) VALUES ($1, $2, $3, $4)`,
		j.ID, j.ProviderID, string(j.Status), j.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("create sync job: %w", err)
	}
	return nil
}

func (r *Repository) FinishSyncJob(ctx context.Context, j domain.SyncJob) error {
	if !j.Status.Terminal() {
		return fmt.Errorf("finish sync job %s: status %q is not terminal", j.ID, j.Status)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE sync_jobs SET status = $2, completed_at = $3, activities_found = $4,
            created = $5, updated = $6, removed = $7, errors = $8, error = $9
        WHERE id = $1 AND status = $10`,
		j.ID, string(j.Status), utcPtr(j.CompletedAt), j.ActivitiesFound,
		j.Created, j.Updated, j.Removed, j.Errors, j.Error, string(domain.SyncRunning))
	if err != nil {
		return fmt.Errorf("finish sync job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotRunning
	}
	return nil
}

const syncJobColumns = `id, provider_id, status, started_at, completed_at, activities_found,
    created, updated, removed, errors, error`

func (r *Repository) GetSyncJob(ctx context.Context, id string) (domain.SyncJob, error) {
	j, err := scanSyncJob(r.pool.QueryRow(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.SyncJob{}, store.ErrNotFound
	}
	return j, err
}

func (r *Repository) ListSyncJobs(ctx context.Context, providerID string, limit int) ([]domain.SyncJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs
        WHERE ($1 = '' OR provider_id = $1)
        ORDER BY started_at DESC LIMIT $2`, providerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SyncJob
	for rows.Next() {
		j, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *Repository) PruneSyncJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sync_jobs WHERE status <> $1 AND started_at < $2`,
		string(domain.SyncRunning), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune sync jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSyncJob(row pgx.Row) (domain.SyncJob, error) {
	var (
		j      domain.SyncJob
		status string
	)
	if err := row.Scan(&j.ID, &j.ProviderID, &status, &j.StartedAt, &j.CompletedAt, &j.ActivitiesFound,
		&j.Created, &j.Updated, &j.Removed, &j.Errors, &j.Error); err != nil {
		return domain.SyncJob{}, err
	}
	j.Status = domain.SyncStatus(status)
	return j, nil
}
