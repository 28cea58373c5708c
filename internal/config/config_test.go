package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max pages", func(c *Config) { c.Scrape.MaxPages = 0 }},
		{"bad ordering", func(c *Config) { c.Scrape.Ordering = map[string]string{"g2": "oldest"} }},
		{"typing delays reversed", func(c *Config) { c.Browser.TypingDelayMax = time.Millisecond }},
		{"api url scheme", func(c *Config) { c.API.BaseURL = "ftp://data.example.com" }},
		{"page size", func(c *Config) { c.API.PageSize = 500 }},
		{"storage type", func(c *Config) { c.Storage.Types = []string{"json", "s3"} }},
		{"mongo without uri", func(c *Config) { c.Storage.Types = []string{"mongo"} }},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"server port", func(c *Config) { c.Server.Port = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviewgoat.yaml")
	yaml := `
scrape:
  max_pages: 7
  ordering:
    trustradius: unsorted
storage:
  types: [json, sqlite]
api:
  page_size: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("REVIEWGOAT_API_TOKEN", "secret-token")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, 7, cfg.Scrape.MaxPages)
	assert.Equal(t, OrderingUnsorted, cfg.Scrape.OrderingFor("trustradius"))
	assert.Equal(t, OrderingNewestFirst, cfg.Scrape.OrderingFor("g2"))
	assert.Equal(t, []string{"json", "sqlite"}, cfg.Storage.Types)
	assert.Equal(t, 50, cfg.API.PageSize)
	assert.Equal(t, "secret-token", cfg.API.Token)
	assert.Equal(t, 5*time.Second, cfg.Scrape.WaitTimeout, "defaults survive partial files")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
