// Package config loads hexosearch settings and the Hexo site configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Project config file names, checked in order.
const (
	ProjectConfigFile    = ".hexosearch.yaml"
	ProjectConfigFileAlt = ".hexosearch.yml"
)

// Config represents the complete hexosearch configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Paths   PathsConfig  `yaml:"paths" json:"paths"`
	Engine  EngineConfig `yaml:"engine" json:"engine"`
	Watch   WatchConfig  `yaml:"watch" json:"watch"`
	Log     LogConfig    `yaml:"log" json:"log"`
}

// PathsConfig locates the run's input and state files.
type PathsConfig struct {
	// Cache is Hexo's db.json.
	Cache string `yaml:"cache" json:"cache"`
	// SiteConfig is Hexo's _config.yml (read for category_map).
	SiteConfig string `yaml:"site_config" json:"site_config"`
	// WatermarkFile records the last index time.
	WatermarkFile string `yaml:"watermark_file" json:"watermark_file"`
	// ExcludeFile lists article paths that are never indexed.
	ExcludeFile string `yaml:"exclude_file" json:"exclude_file"`
	// HistoryDB is the SQLite run history; empty disables history.
	HistoryDB string `yaml:"history_db" json:"history_db"`
}

// EngineConfig configures the search engine target.
type EngineConfig struct {
	// Backend is "elasticsearch" or "bleve".
	Backend  string `yaml:"backend" json:"backend"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	Index    string `yaml:"index" json:"index"`
	DocType  string `yaml:"doctype" json:"doctype"`
	// Timeout bounds each engine request (Go duration, e.g. "60s").
	Timeout string `yaml:"timeout" json:"timeout"`
	// BlevePath is the directory holding local bleve indexes.
	BlevePath string `yaml:"bleve_path" json:"bleve_path"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is how long db.json must stay quiet before a run starts.
	Debounce string `yaml:"debounce" json:"debounce"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	// File enables rotated file logging when set.
	File string `yaml:"file" json:"file"`
}

// NewConfig returns the defaults: Hexo's file names in the site root and a
// local Elasticsearch.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Cache:         "db.json",
			SiteConfig:    "_config.yml",
			WatermarkFile: ".es-last-index-time",
			ExcludeFile:   ".es-exclude-articles",
			HistoryDB:     ".hexosearch/history.db",
		},
		Engine: EngineConfig{
			Backend:   "elasticsearch",
			Host:      "localhost",
			Port:      9200,
			Timeout:   "60s",
			BlevePath: ".hexosearch/index",
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/hexosearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/hexosearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hexosearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "hexosearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "hexosearch", "config.yaml")
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the site in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/hexosearch/config.yaml)
//  3. Project config (.hexosearch.yaml in the site directory)
//  4. Environment variables (HEXOSEARCH_*)
//
// Command-line flags are applied by the caller, which then calls Validate.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.validateSettings(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads .hexosearch.yaml or .hexosearch.yml from dir if present.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigFile, ProjectConfigFileAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	mergeString(&c.Paths.Cache, other.Paths.Cache)
	mergeString(&c.Paths.SiteConfig, other.Paths.SiteConfig)
	mergeString(&c.Paths.WatermarkFile, other.Paths.WatermarkFile)
	mergeString(&c.Paths.ExcludeFile, other.Paths.ExcludeFile)
	mergeString(&c.Paths.HistoryDB, other.Paths.HistoryDB)

	mergeString(&c.Engine.Backend, other.Engine.Backend)
	mergeString(&c.Engine.Host, other.Engine.Host)
	if other.Engine.Port != 0 {
		c.Engine.Port = other.Engine.Port
	}
	mergeString(&c.Engine.User, other.Engine.User)
	mergeString(&c.Engine.Password, other.Engine.Password)
	mergeString(&c.Engine.Index, other.Engine.Index)
	mergeString(&c.Engine.DocType, other.Engine.DocType)
	mergeString(&c.Engine.Timeout, other.Engine.Timeout)
	mergeString(&c.Engine.BlevePath, other.Engine.BlevePath)

	mergeString(&c.Watch.Debounce, other.Watch.Debounce)

	mergeString(&c.Log.Level, other.Log.Level)
	mergeString(&c.Log.File, other.Log.File)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyEnvOverrides applies HEXOSEARCH_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	envString := map[string]*string{
		"HEXOSEARCH_CACHE":          &c.Paths.Cache,
		"HEXOSEARCH_SITE_CONFIG":    &c.Paths.SiteConfig,
		"HEXOSEARCH_WATERMARK_FILE": &c.Paths.WatermarkFile,
		"HEXOSEARCH_EXCLUDE_FILE":   &c.Paths.ExcludeFile,
		"HEXOSEARCH_HISTORY_DB":     &c.Paths.HistoryDB,
		"HEXOSEARCH_BACKEND":        &c.Engine.Backend,
		"HEXOSEARCH_HOST":           &c.Engine.Host,
		"HEXOSEARCH_USER":           &c.Engine.User,
		"HEXOSEARCH_PASSWORD":       &c.Engine.Password,
		"HEXOSEARCH_INDEX":          &c.Engine.Index,
		"HEXOSEARCH_DOCTYPE":        &c.Engine.DocType,
		"HEXOSEARCH_TIMEOUT":        &c.Engine.Timeout,
		"HEXOSEARCH_BLEVE_PATH":     &c.Engine.BlevePath,
		"HEXOSEARCH_WATCH_DEBOUNCE": &c.Watch.Debounce,
		"HEXOSEARCH_LOG_LEVEL":      &c.Log.Level,
		"HEXOSEARCH_LOG_FILE":       &c.Log.File,
	}
	for key, dst := range envString {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("HEXOSEARCH_PORT"); v != "" {
		if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && p > 0 {
			c.Engine.Port = p
		}
	}
}

// TimeoutDuration returns the parsed engine timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// DebounceDuration returns the parsed watch debounce.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// Validate checks the final configuration, including the index target
// that only the command line usually supplies.
func (c *Config) Validate() error {
	if err := c.validateSettings(); err != nil {
		return err
	}
	if c.Engine.Index == "" {
		return fmt.Errorf("engine.index is required (use -i/--index)")
	}
	if c.Engine.DocType == "" {
		return fmt.Errorf("engine.doctype is required (use -t/--doctype)")
	}
	return nil
}

// validateSettings checks everything except the index target.
func (c *Config) validateSettings() error {
	validBackends := map[string]bool{"elasticsearch": true, "es": true, "bleve": true}
	if !validBackends[strings.ToLower(c.Engine.Backend)] {
		return fmt.Errorf("engine.backend must be 'elasticsearch' or 'bleve', got %s", c.Engine.Backend)
	}

	if c.Engine.Port <= 0 || c.Engine.Port > 65535 {
		return fmt.Errorf("engine.port must be between 1 and 65535, got %d", c.Engine.Port)
	}

	if d, err := time.ParseDuration(c.Engine.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("engine.timeout must be a positive duration, got %q", c.Engine.Timeout)
	}

	if d, err := time.ParseDuration(c.Watch.Debounce); err != nil || d <= 0 {
		return fmt.Errorf("watch.debounce must be a positive duration, got %q", c.Watch.Debounce)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}

	if c.Paths.Cache == "" {
		return fmt.Errorf("paths.cache must not be empty")
	}
	if c.Paths.WatermarkFile == "" {
		return fmt.Errorf("paths.watermark_file must not be empty")
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolvePaths makes relative paths absolute against dir.
func (c *Config) ResolvePaths(dir string) {
	for _, p := range []*string{
		&c.Paths.Cache,
		&c.Paths.SiteConfig,
		&c.Paths.WatermarkFile,
		&c.Paths.ExcludeFile,
		&c.Paths.HistoryDB,
		&c.Engine.BlevePath,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
