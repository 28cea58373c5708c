package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	// REVIEWGOAT_API_TOKEN, REVIEWGOAT_CRAWLER_TOKEN, ...
	v.SetEnvPrefix("REVIEWGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reviewgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".reviewgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine unless one was asked for explicitly.
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides apply to
// keys absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scrape.politeness_delay", cfg.Scrape.PolitenessDelay)
	v.SetDefault("scrape.wait_timeout", cfg.Scrape.WaitTimeout)
	v.SetDefault("scrape.navigation_timeout", cfg.Scrape.NavigationTimeout)
	v.SetDefault("scrape.max_pages", cfg.Scrape.MaxPages)
	v.SetDefault("scrape.keep_undated", cfg.Scrape.KeepUndated)
	v.SetDefault("scrape.match_threshold", cfg.Scrape.MatchThreshold)

	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.bin", cfg.Browser.Bin)
	v.SetDefault("browser.proxy", cfg.Browser.Proxy)
	v.SetDefault("browser.no_sandbox", cfg.Browser.NoSandbox)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.user_agents", cfg.Browser.UserAgents)
	v.SetDefault("browser.typing_delay_min", cfg.Browser.TypingDelayMin)
	v.SetDefault("browser.typing_delay_max", cfg.Browser.TypingDelayMax)
	v.SetDefault("browser.debug_dir", cfg.Browser.DebugDir)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)

	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.token", cfg.API.Token)
	v.SetDefault("api.page_size", cfg.API.PageSize)
	v.SetDefault("api.max_pages", cfg.API.MaxPages)
	v.SetDefault("api.requests_per_second", cfg.API.RequestsPerSecond)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("api.cloudflare_bypass", cfg.API.CloudflareBypass)

	v.SetDefault("crawler.base_url", cfg.Crawler.BaseURL)
	v.SetDefault("crawler.token", cfg.Crawler.Token)
	v.SetDefault("crawler.actor", cfg.Crawler.Actor)
	v.SetDefault("crawler.max_pages", cfg.Crawler.MaxPages)
	v.SetDefault("crawler.poll_interval", cfg.Crawler.PollInterval)
	v.SetDefault("crawler.poll_attempts", cfg.Crawler.PollAttempts)
	v.SetDefault("crawler.timeout", cfg.Crawler.Timeout)

	v.SetDefault("storage.types", cfg.Storage.Types)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.sqlite_path", cfg.Storage.SQLitePath)
	v.SetDefault("storage.redis_addr", cfg.Storage.RedisAddr)
	v.SetDefault("storage.redis_password", cfg.Storage.RedisPassword)
	v.SetDefault("storage.redis_db", cfg.Storage.RedisDB)
	v.SetDefault("storage.redis_ttl", cfg.Storage.RedisTTL)

	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("server.read_timeout", cfg.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", cfg.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.snapshot_dir", cfg.Server.SnapshotDir)
	v.SetDefault("server.allow_remote_snapshots", cfg.Server.AllowRemoteSnapshots)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
