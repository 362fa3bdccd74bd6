package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// isolate points the user config at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: Hexo file names and a local Elasticsearch are the defaults
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "db.json", cfg.Paths.Cache)
	assert.Equal(t, "_config.yml", cfg.Paths.SiteConfig)
	assert.Equal(t, ".es-last-index-time", cfg.Paths.WatermarkFile)
	assert.Equal(t, ".es-exclude-articles", cfg.Paths.ExcludeFile)
	assert.Equal(t, "elasticsearch", cfg.Engine.Backend)
	assert.Equal(t, "localhost", cfg.Engine.Host)
	assert.Equal(t, 9200, cfg.Engine.Port)
	assert.Equal(t, 60*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 2*time.Second, cfg.DebounceDuration())
	assert.Empty(t, cfg.Engine.Index)
	assert.Empty(t, cfg.Engine.DocType)
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	// Given: a project config with some fields set
	isolate(t)
	dir := t.TempDir()
	yaml := `
engine:
  host: search.internal
  port: 9243
  index: blog
  doctype: article
paths:
  cache: public/db.json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hexosearch.yaml"), []byte(yaml), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: set fields override, others keep defaults
	require.NoError(t, err)
	assert.Equal(t, "search.internal", cfg.Engine.Host)
	assert.Equal(t, 9243, cfg.Engine.Port)
	assert.Equal(t, "blog", cfg.Engine.Index)
	assert.Equal(t, "public/db.json", cfg.Paths.Cache)
	assert.Equal(t, "_config.yml", cfg.Paths.SiteConfig)
	assert.Equal(t, "elasticsearch", cfg.Engine.Backend)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hexosearch.yml"), []byte("engine:\n  backend: bleve\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "bleve", cfg.Engine.Backend)
}

func TestLoad_UserConfigBelowProjectConfig(t *testing.T) {
	// Given: user config and project config disagree
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	require.NoError(t, os.MkdirAll(filepath.Join(xdg, "hexosearch"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(xdg, "hexosearch", "config.yaml"),
		[]byte("engine:\n  host: user-host\n  user: elastic\n"), 0o644))
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hexosearch.yaml"),
		[]byte("engine:\n  host: project-host\n"), 0o644))

	// When: loading
	cfg, err := Load(dir)

	// Then: project wins, user fills the rest
	require.NoError(t, err)
	assert.Equal(t, "project-host", cfg.Engine.Host)
	assert.Equal(t, "elastic", cfg.Engine.User)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hexosearch.yaml"),
		[]byte("engine:\n  host: file-host\n"), 0o644))
	t.Setenv("HEXOSEARCH_HOST", "env-host")
	t.Setenv("HEXOSEARCH_PORT", "9300")
	t.Setenv("HEXOSEARCH_INDEX", "blog")
	t.Setenv("HEXOSEARCH_TIMEOUT", "5s")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "env-host", cfg.Engine.Host)
	assert.Equal(t, 9300, cfg.Engine.Port)
	assert.Equal(t, "blog", cfg.Engine.Index)
	assert.Equal(t, 5*time.Second, cfg.TimeoutDuration())
}

func TestLoad_InvalidPortEnvIgnored(t *testing.T) {
	isolate(t)
	t.Setenv("HEXOSEARCH_PORT", "not-a-port")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Engine.Port)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hexosearch.yaml"), []byte("engine: [unclosed"), 0o644))

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_InvalidSettingsRejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"backend", "engine:\n  backend: solr\n", "engine.backend"},
		{"port", "engine:\n  port: 70000\n", "engine.port"},
		{"timeout", "engine:\n  timeout: soon\n", "engine.timeout"},
		{"debounce", "watch:\n  debounce: -1s\n", "watch.debounce"},
		{"log level", "log:\n  level: loud\n", "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ".hexosearch.yaml"), []byte(tt.yaml), 0o644))

			_, err := Load(dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_RequiresIndexTarget(t *testing.T) {
	cfg := NewConfig()
	assert.ErrorContains(t, cfg.Validate(), "engine.index")

	cfg.Engine.Index = "blog"
	assert.ErrorContains(t, cfg.Validate(), "engine.doctype")

	cfg.Engine.DocType = "article"
	assert.NoError(t, cfg.Validate())
}

func TestResolvePaths(t *testing.T) {
	cfg := NewConfig()
	cfg.Paths.ExcludeFile = "/etc/hexo/excludes"

	cfg.ResolvePaths("/srv/blog")

	assert.Equal(t, "/srv/blog/db.json", cfg.Paths.Cache)
	assert.Equal(t, "/srv/blog/.es-last-index-time", cfg.Paths.WatermarkFile)
	assert.Equal(t, "/etc/hexo/excludes", cfg.Paths.ExcludeFile)
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Engine.Index = "blog"
	cfg.Engine.DocType = "article"

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".hexosearch.yaml")))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadSiteConfig_ReadsCategoryMap(t *testing.T) {
	// Given: a Hexo config with aliases
	path := filepath.Join(t.TempDir(), "_config.yml")
	yaml := `
title: My Blog
category_map:
  tech: t
  Life Notes: life
  2016: y2016
tag_map:
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	// When: loading it
	site, err := LoadSiteConfig(path)

	// Then: aliases are keyed by category name
	require.NoError(t, err)
	assert.True(t, site.HasCategoryMap())
	assert.Equal(t, CategoryMap{"tech": "t", "Life Notes": "life", "2016": "y2016"}, site.CategoryMap)
}

func TestLoadSiteConfig_MissingMapIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.yml")
	require.NoError(t, os.WriteFile(path, []byte("title: My Blog\ncategory_map:\n"), 0o644))

	site, err := LoadSiteConfig(path)

	require.NoError(t, err)
	assert.False(t, site.HasCategoryMap())
	assert.Nil(t, site.CategoryMap)
}

func TestLoadSiteConfig_MissingFileIsFatal(t *testing.T) {
	_, err := LoadSiteConfig(filepath.Join(t.TempDir(), "_config.yml"))

	require.Error(t, err)
	assert.Equal(t, synerr.ErrCodeFileNotFound, synerr.GetCode(err))
	assert.True(t, synerr.IsFatal(err))
	assert.Contains(t, err.Error(), "hexo config file")
}

func TestLoadSiteConfig_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "_config.yml")
	require.NoError(t, os.WriteFile(path, []byte("category_map: [a, b"), 0o644))

	_, err := LoadSiteConfig(path)

	require.Error(t, err)
	assert.Equal(t, synerr.ErrCodeConfigInvalid, synerr.GetCode(err))
}
