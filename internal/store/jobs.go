package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"activitytracker-engine/internal/domain"
)

// EnsureProvider inserts the provider or refreshes its name and website.
func (d *DB) EnsureProvider(ctx context.Context, p domain.Provider) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO providers (id, name, website, is_active, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  website = excluded.website,
  is_active = excluded.is_active;`,
		p.ID, p.Name, p.Website, boolInt(p.IsActive), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("ensure provider %s: %w", p.ID, err)
	}
	return nil
}

func (d *DB) CreateSyncJob(ctx context.Context, j domain.SyncJob) error {
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO sync_jobs (id, provider_id, status, started_at)
VALUES (?, ?, ?, ?);`, j.ID, j.ProviderID, string(j.Status), formatTime(j.StartedAt))
	if err != nil {
		return fmt.Errorf("create sync job: %w", err)
	}
	return nil
}

var ErrNotRunning = errors.New("sync job is not running")

// FinishSyncJob moves a running job to its terminal state. A job that is
// already terminal is left unchanged and ErrNotRunning is returned.
func (d *DB) FinishSyncJob(ctx context.Context, j domain.SyncJob) error {
	if !j.Status.Terminal() {
		return fmt.Errorf("finish sync job %s: status %q is not terminal", j.ID, j.Status)
	}
	res, err := d.Pool.ExecContext(ctx, `
UPDATE sync_jobs SET
  status = ?, completed_at = ?, activities_found = ?,
  created = ?, updated = ?, removed = ?, errors = ?, error = ?
WHERE id = ? AND status = ?;`,
		string(j.Status), nullTime(j.CompletedAt), j.ActivitiesFound,
		j.Created, j.Updated, j.Removed, j.Errors, j.Error,
		j.ID, string(domain.SyncRunning))
	if err != nil {
		return fmt.Errorf("finish sync job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotRunning
	}
	return nil
}

func (d *DB) GetSyncJob(ctx context.Context, id string) (domain.SyncJob, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+syncJobColumns+` FROM sync_jobs WHERE id = ?;`, id)
	j, err := scanSyncJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SyncJob{}, ErrNotFound
	}
	return j, err
}

// ListSyncJobs returns the most recent jobs first.
func (d *DB) ListSyncJobs(ctx context.Context, providerID string, limit int) ([]domain.SyncJob, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx, `
SELECT `+syncJobColumns+` FROM sync_jobs
WHERE (? = '' OR provider_id = ?)
ORDER BY started_at DESC
LIMIT ?;`, providerID, providerID, limit)
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

// PruneSyncJobs deletes finished jobs that started before cutoff.
func (d *DB) PruneSyncJobs(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
	res, err := d.Pool.ExecContext(ctx, `
DELETE FROM sync_jobs
WHERE status != ? AND started_at < ?;`, string(domain.SyncRunning), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune sync jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

const syncJobColumns = `id, provider_id, status, started_at, completed_at, activities_found,
  created, updated, removed, errors, error`

func scanSyncJob(r rowScanner) (domain.SyncJob, error) {
	var (
		j                 domain.SyncJob
		status, startedAt string
		completedAt       sql.NullString
	)
	if err := r.Scan(&j.ID, &j.ProviderID, &status, &startedAt, &completedAt, &j.ActivitiesFound,
		&j.Created, &j.Updated, &j.Removed, &j.Errors, &j.Error); err != nil {
		return domain.SyncJob{}, err
	}
	j.Status = domain.SyncStatus(status)
	j.StartedAt = parseTime(startedAt)
	j.CompletedAt = timePtr(completedAt)
	return j, nil
}
