package httpapi

import (
	"context"
	"net/http"
	"sync/atomic"

	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/events"
	"activitytracker-engine/internal/pipeline"
	"activitytracker-engine/internal/store"
)

// Catalog is the read side of the store the API serves from.
type Catalog interface {
	ListEntries(ctx context.Context, opts store.ListEntriesOpts) ([]domain.CatalogEntry, error)
	ListSyncJobs(ctx context.Context, providerID string, limit int) ([]domain.SyncJob, error)
}

type Deps struct {
	Catalog Catalog

	Hub *events.Hub

	// Atomic stores
	CfgVal  *atomic.Value // stores config.Config
	Tracker *pipeline.Tracker

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// NewRunner builds a runner from the current config (inject for testability)
	NewRunner func() (*pipeline.Runner, error)

	// Metrics defaults to the prometheus handler when nil.
	Metrics http.Handler
}

func (d Deps) cfg() config.Config {
	return d.CfgVal.Load().(config.Config)
}
