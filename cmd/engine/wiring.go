package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"activitytracker-engine/internal/checkpoint"
	"activitytracker-engine/internal/collect"
	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/domain"
	"activitytracker-engine/internal/httpapi"
	"activitytracker-engine/internal/identity"
	"activitytracker-engine/internal/logging"
	"activitytracker-engine/internal/pipeline"
	"activitytracker-engine/internal/poll"
	"activitytracker-engine/internal/reconcile"
	"activitytracker-engine/internal/secrets"
	"activitytracker-engine/internal/source"
	"activitytracker-engine/internal/store"
	"activitytracker-engine/internal/store/postgres"
)

// catalogStore is what both the sqlite and postgres stores provide.
type catalogStore interface {
	reconcile.Catalog
	pipeline.JobStore
	httpapi.Catalog
	poll.Pruner
	Close() error
}

func dataDir() string {
	if flagDataDir != "" {
		return flagDataDir
	}
	if v := os.Getenv("ENGINE_DATA_DIR"); v != "" {
		return v
	}
	return "."
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.EnsureUserConfig(dataDir())
}

// loadConfig reads, overlays and validates the config, then sets up logging
// from it. Validation warnings are logged; errors abort.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if flagDataDir != "" {
		cfg.App.DataDir = flagDataDir
	}
	if err := config.OverlayCategories(&cfg, cfg.DataPath("categories.yml")); err != nil {
		return cfg, fmt.Errorf("categories overlay: %w", err)
	}

	normalized, vr := config.NormalizeAndValidate(cfg)

	level := normalized.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	logging.Configure(logging.Config{Level: level, Format: normalized.Log.Format, Output: os.Stderr})

	log := logging.Component("config")
	for _, w := range vr.Warnings {
		log.Warn().Msg(w)
	}
	if !vr.OK() {
		return normalized, errors.New("invalid config: " + strings.Join(vr.Errors, "; "))
	}
	return normalized, nil
}

func openStore(ctx context.Context, cfg config.Config) (catalogStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		connURL, err := secrets.WithPostgresPassword(cfg.Store.PostgresURL, cfg.KeyringAccount())
		if err != nil {
			return nil, err
		}
		repo, err := postgres.Connect(ctx, connURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		path := cfg.DataPath(cfg.Store.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

// newRunner builds a Runner for one sync from cfg.
func newRunner(cfg config.Config, st catalogStore, pub pipeline.Publisher) (*pipeline.Runner, error) {
	policy, err := identity.ParseFallbackPolicy(cfg.Dedup.FallbackPolicy)
	if err != nil {
		return nil, err
	}
	col, err := source.New(source.Options{
		Kind:        cfg.Source.Kind,
		URLTemplate: cfg.Source.URLTemplate,
		RowSelector: cfg.Source.RowSelector,
		RatePerSec:  cfg.Source.RatePerSec,
		Burst:       cfg.Source.Burst,
		FixturesDir: cfg.DataPath(cfg.Source.FixturesDir),
	})
	if err != nil {
		return nil, err
	}

	r := &pipeline.Runner{
		Provider: domain.Provider{
			ID:       cfg.Provider.ID,
			Name:     cfg.Provider.Name,
			Website:  cfg.Provider.Website,
			IsActive: true,
		},
		Categories: cfg.Categories,
		Collector:  col,
		Catalog:    st,
		Jobs:       st,
		Collect: collect.Config{
			Concurrency:     cfg.Sync.Concurrency,
			SectionTimeout:  cfg.Sync.SectionTimeout,
			MaxAttempts:     cfg.Sync.Retry.MaxAttempts,
			InitialInterval: cfg.Sync.Retry.InitialInterval,
			FallbackPolicy:  policy,
		},
		Events:              pub,
		AbortOnTotalFailure: cfg.Sync.AbortOnTotalFailure,
	}
	if cfg.Checkpoint.Enabled {
		r.Checkpoints = checkpoint.FileStore{Path: cfg.DataPath(cfg.Checkpoint.Path)}
	}
	if cfg.Report.Dir != "" {
		r.ReportDir = cfg.DataPath(cfg.Report.Dir)
	}
	return r, nil
}

func openFromFlags(cmd *cobra.Command) (config.Config, catalogStore, error) {
	path, err := configPath()
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return cfg, nil, err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return cfg, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, st, nil
}
