// config/overlay.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type CategoriesFile struct {
	Categories []string `yaml:"categories"`
}

// OverlayCategories replaces cfg.Categories with the list in path, when
// the file exists and is non-empty.
func OverlayCategories(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		// Missing categories file should not kill startup
		return nil
	}

	var cf CategoriesFile
	if err := yaml.Unmarshal(b, &cf); err != nil {
		return err
	}
	if len(cf.Categories) > 0 {
		cfg.Categories = cf.Categories
	}
	return nil
}
