package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// CategoryMap maps a category name to the path segment Hexo uses for it.
type CategoryMap map[string]string

// SiteConfig is the part of Hexo's _config.yml hexosearch reads.
type SiteConfig struct {
	CategoryMap CategoryMap `yaml:"category_map"`
}

// HasCategoryMap reports whether category_map was defined.
func (s *SiteConfig) HasCategoryMap() bool {
	return len(s.CategoryMap) > 0
}

// LoadSiteConfig reads the Hexo site configuration at path.
// A missing file is an input-missing error. A missing category_map is not
// an error; it only disables alias substitution.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, synerr.NotFound("hexo config file", path).
				WithSuggestion("Run from the Hexo site root or pass --site-config")
		}
		return nil, synerr.New(synerr.ErrCodeFilePermission,
			fmt.Sprintf("cannot read hexo config file %s", path), err)
	}

	var site SiteConfig
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, synerr.ConfigError(fmt.Sprintf("failed to parse hexo config file %s", path), err).
			WithDetail("path", path)
	}

	if !site.HasCategoryMap() {
		slog.Warn("category_map_missing", slog.String("path", path))
	}
	return &site, nil
}
