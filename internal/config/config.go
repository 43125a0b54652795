// engine/internal/config/config.go
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"activitytracker-engine/internal/secrets"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Provider struct {
		ID      string `yaml:"id"`
		Name    string `yaml:"name"`
		Website string `yaml:"website"`
	} `yaml:"provider"`

	Categories []string `yaml:"categories"`

	Sync struct {
		Concurrency    int           `yaml:"concurrency"`
		SectionTimeout time.Duration `yaml:"section_timeout"`
		Interval       time.Duration `yaml:"interval"`
		KeepJobsDays   int           `yaml:"keep_jobs_days"`
		// AbortOnTotalFailure keeps the catalog untouched when no section
		// could be collected.
		AbortOnTotalFailure bool `yaml:"abort_when_all_sections_fail"`
		Retry               struct {
			MaxAttempts     int           `yaml:"max_attempts"`
			InitialInterval time.Duration `yaml:"initial_interval"`
		} `yaml:"retry"`
	} `yaml:"sync"`

	Dedup struct {
		FallbackPolicy string `yaml:"fallback_policy"`
	} `yaml:"dedup"`

	Store struct {
		Driver         string `yaml:"driver"` // sqlite | postgres
		Path           string `yaml:"path"`
		PostgresURL    string `yaml:"postgres_url"`
		KeyringAccount string `yaml:"keyring_account"`
	} `yaml:"store"`

	Source struct {
		Kind        string  `yaml:"kind"` // http | browser | file
		URLTemplate string  `yaml:"url_template"`
		RowSelector string  `yaml:"row_selector"`
		RatePerSec  float64 `yaml:"rate_per_sec"`
		Burst       int     `yaml:"burst"`
		FixturesDir string  `yaml:"fixtures_dir"`
	} `yaml:"source"`

	Checkpoint struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"checkpoint"`

	Report struct {
		Dir string `yaml:"dir"`
	} `yaml:"report"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads path, fills defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	cfg.ApplyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Port == 0 {
		c.App.Port = 38471
	}
	if c.App.DataDir == "" {
		c.App.DataDir = "."
	}
	if c.Sync.Concurrency == 0 {
		c.Sync.Concurrency = 3
	}
	if c.Sync.SectionTimeout == 0 {
		c.Sync.SectionTimeout = 2 * time.Minute
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 6 * time.Hour
	}
	if c.Sync.KeepJobsDays == 0 {
		c.Sync.KeepJobsDays = 90
	}
	if c.Sync.Retry.MaxAttempts == 0 {
		c.Sync.Retry.MaxAttempts = 1
	}
	if c.Sync.Retry.InitialInterval == 0 {
		c.Sync.Retry.InitialInterval = 2 * time.Second
	}
	if c.Dedup.FallbackPolicy == "" {
		c.Dedup.FallbackPolicy = "coarse"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "http"
	}
	if c.Source.Burst == 0 {
		c.Source.Burst = 2
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnv overrides file values with ENGINE_DATA_DIR, ENGINE_POSTGRES_URL
// and LOG_LEVEL when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("ENGINE_DATA_DIR"); v != "" {
		c.App.DataDir = v
	}
	if v := os.Getenv("ENGINE_POSTGRES_URL"); v != "" {
		c.Store.PostgresURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// DataPath resolves p against the data dir unless it is absolute.
func (c Config) DataPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.App.DataDir, p)
}

// KeyringAccount is the keychain account holding the postgres password.
func (c Config) KeyringAccount() string {
	if c.Store.KeyringAccount != "" {
		return c.Store.KeyringAccount
	}
	return secrets.PostgresKeyringAccount(c.Store.PostgresURL)
}
