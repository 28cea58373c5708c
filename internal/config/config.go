package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Ordering policies for the pagination early-stop heuristic.
const (
	OrderingNewestFirst = "newest-first"
	OrderingUnsorted    = "unsorted"
)

// Config is the root configuration for ReviewGoat.
type Config struct {
	Scrape  ScrapeConfig  `mapstructure:"scrape"  yaml:"scrape"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Crawler CrawlerConfig `mapstructure:"crawler" yaml:"crawler"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Server  ServerConfig  `mapstructure:"server"  yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScrapeConfig controls navigation, extraction and paging.
type ScrapeConfig struct {
	PolitenessDelay   time.Duration     `mapstructure:"politeness_delay"   yaml:"politeness_delay"`
	WaitTimeout       time.Duration     `mapstructure:"wait_timeout"       yaml:"wait_timeout"`
	NavigationTimeout time.Duration     `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	MaxPages          int               `mapstructure:"max_pages"          yaml:"max_pages"`
	KeepUndated       bool              `mapstructure:"keep_undated"       yaml:"keep_undated"`
	Ordering          map[string]string `mapstructure:"ordering"           yaml:"ordering"`
	MatchThreshold    float64           `mapstructure:"match_threshold"    yaml:"match_threshold"`
}

// BrowserConfig controls the headless browser session.
type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"         yaml:"headless"`
	Bin            string        `mapstructure:"bin"              yaml:"bin"`
	Proxy          string        `mapstructure:"proxy"            yaml:"proxy"`
	NoSandbox      bool          `mapstructure:"no_sandbox"       yaml:"no_sandbox"`
	Stealth        bool          `mapstructure:"stealth"          yaml:"stealth"`
	UserAgents     []string      `mapstructure:"user_agents"      yaml:"user_agents"`
	TypingDelayMin time.Duration `mapstructure:"typing_delay_min" yaml:"typing_delay_min"`
	TypingDelayMax time.Duration `mapstructure:"typing_delay_max" yaml:"typing_delay_max"`
	DebugDir       string        `mapstructure:"debug_dir"        yaml:"debug_dir"`
}

// FetcherConfig controls the plain HTTP snapshot fetcher.
type FetcherConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	MaxBodySize    int64         `mapstructure:"max_body_size"   yaml:"max_body_size"`
	MaxRedirects   int           `mapstructure:"max_redirects"   yaml:"max_redirects"`
}

// APIConfig controls the first-party data API client.
type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"            yaml:"base_url"`
	Token             string        `mapstructure:"token"               yaml:"token"`
	PageSize          int           `mapstructure:"page_size"           yaml:"page_size"`
	MaxPages          int           `mapstructure:"max_pages"           yaml:"max_pages"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"             yaml:"timeout"`
	CloudflareBypass  bool          `mapstructure:"cloudflare_bypass"   yaml:"cloudflare_bypass"`
}

// CrawlerConfig controls the managed crawling-service client.
type CrawlerConfig struct {
	BaseURL      string        `mapstructure:"base_url"      yaml:"base_url"`
	Token        string        `mapstructure:"token"         yaml:"token"`
	Actor        string        `mapstructure:"actor"         yaml:"actor"`
	MaxPages     int           `mapstructure:"max_pages"     yaml:"max_pages"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts" yaml:"poll_attempts"`
	Timeout      time.Duration `mapstructure:"timeout"       yaml:"timeout"`
}

// StorageConfig controls result persistence.
type StorageConfig struct {
	Types           []string      `mapstructure:"types"            yaml:"types"`
	OutputPath      string        `mapstructure:"output_path"      yaml:"output_path"`
	MongoURI        string        `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string        `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string        `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	SQLitePath      string        `mapstructure:"sqlite_path"      yaml:"sqlite_path"`
	RedisAddr       string        `mapstructure:"redis_addr"       yaml:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"   yaml:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"         yaml:"redis_db"`
	RedisTTL        time.Duration `mapstructure:"redis_ttl"        yaml:"redis_ttl"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	// SnapshotDir is the only directory snapshot-mode requests may read
	// from. Empty disables local snapshots over HTTP.
	SnapshotDir          string `mapstructure:"snapshot_dir"           yaml:"snapshot_dir"`
	AllowRemoteSnapshots bool   `mapstructure:"allow_remote_snapshots" yaml:"allow_remote_snapshots"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// OrderingFor returns the listing order assumed for a source.
func (c ScrapeConfig) OrderingFor(source string) string {
	if o, ok := c.Ordering[source]; ok && o != "" {
		return o
	}
	return OrderingNewestFirst
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scrape: ScrapeConfig{
			PolitenessDelay:   1 * time.Second,
			WaitTimeout:       5 * time.Second,
			NavigationTimeout: 30 * time.Second,
			MaxPages:          50,
			KeepUndated:       true,
			Ordering:          map[string]string{},
			MatchThreshold:    0.7,
		},
		Browser: BrowserConfig{
			Headless: true,
			Stealth:  true,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.0.0",
			},
			TypingDelayMin: 60 * time.Millisecond,
			TypingDelayMax: 180 * time.Millisecond,
		},
		Fetcher: FetcherConfig{
			RequestTimeout: 30 * time.Second,
			MaxBodySize:    10 * 1024 * 1024, // 10MB
			MaxRedirects:   10,
		},
		API: APIConfig{
			BaseURL:           "https://data.g2.com/api/v1",
			PageSize:          25,
			MaxPages:          100,
			RequestsPerSecond: 2,
			Timeout:           30 * time.Second,
		},
		Crawler: CrawlerConfig{
			BaseURL:      "https://api.apify.com",
			Actor:        "apify~website-content-crawler",
			MaxPages:     10,
			PollInterval: 5 * time.Second,
			PollAttempts: 24,
			Timeout:      60 * time.Second,
		},
		Storage: StorageConfig{
			Types:           []string{"json"},
			OutputPath:      "./outputs",
			MongoDatabase:   "reviewgoat",
			MongoCollection: "scrape_results",
			SQLitePath:      "./outputs/reviewgoat.db",
			RedisAddr:       "localhost:6379",
			RedisTTL:        24 * time.Hour,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
