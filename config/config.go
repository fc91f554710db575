package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment
// variables or a .env file.
//
// It is composed of smaller structs that represent different concerns of
// the system: the HTTP server, the push feed, the sync client's reconnect
// policy, the snapshot cache, and the daily-quote source.
//
// Example YAML/ENV equivalent:
//
//	SERVER_PORT=8080
//	FEED_INTERVAL_SECONDS=5
//	FEED_URL=ws://localhost:8080/ws
//	RECONNECT_BASE_DELAY_MS=2000
//	RECONNECT_MAX_ATTEMPTS=5
//	USE_REDIS=false
//	REDIS_ADDR=localhost:6379
//	REDIS_DB=0
//	CACHE_TTL_SECONDS=300
//	QUOTE_BASE_URL=https://query1.finance.yahoo.com
type Config struct {
	Server    ServerConfig    // HTTP server configuration
	Feed      FeedConfig      // Push feed (websocket broadcast) settings
	Reconnect ReconnectConfig // Sync client reconnect policy
	Cache     CacheConfig     // Snapshot cache settings
	Quote     QuoteConfig     // Daily-quote source settings
	Summary   SummaryConfig   // Snapshot provider settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// FeedConfig holds push-feed settings.
//
// Fields:
//   - Interval: how often the hub re-fetches and broadcasts subscribed symbols.
//   - URL: feed endpoint a sync client connects to (watch mode).
type FeedConfig struct {
	Interval time.Duration
	URL      string
}

// ReconnectConfig holds the sync client's reconnect policy.
//
// The delay before retry n (1-indexed) is BaseDelay * n; after MaxAttempts
// consecutive failures the client stays disconnected until an explicit
// subscribe.
type ReconnectConfig struct {
	BaseDelay   time.Duration
	MaxAttempts int
}

// CacheConfig holds snapshot-cache settings. When UseRedis is false an
// in-process TTL cache is used instead.
type CacheConfig struct {
	UseRedis bool
	Addr     string
	DB       int
	TTL      time.Duration
}

// QuoteConfig holds the daily-quote source settings.
type QuoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SummaryConfig holds snapshot-provider settings.
//
// OverrideFile, when set and present on disk, is a vendor orderflow export
// served instead of generated snapshots. Empty disables the override.
type SummaryConfig struct {
	OverrideFile string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the
// application; services read from AppConfig instead of reloading
// environment variables directly.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from a .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() terminates the
//     app with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("FEED_INTERVAL_SECONDS", 5)
	viper.SetDefault("FEED_URL", "ws://localhost:8080/ws")

	viper.SetDefault("RECONNECT_BASE_DELAY_MS", 2000)
	viper.SetDefault("RECONNECT_MAX_ATTEMPTS", 5)

	viper.SetDefault("USE_REDIS", false)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_TTL_SECONDS", 300)

	viper.SetDefault("QUOTE_BASE_URL", "https://query1.finance.yahoo.com")
	viper.SetDefault("QUOTE_TIMEOUT_SECONDS", 10)

	viper.SetDefault("SNAPSHOT_OVERRIDE_FILE", "")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	// Populate global config instance
	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Feed: FeedConfig{
			Interval: time.Duration(viper.GetInt("FEED_INTERVAL_SECONDS")) * time.Second,
			URL:      viper.GetString("FEED_URL"),
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   time.Duration(viper.GetInt("RECONNECT_BASE_DELAY_MS")) * time.Millisecond,
			MaxAttempts: viper.GetInt("RECONNECT_MAX_ATTEMPTS"),
		},
		Cache: CacheConfig{
			UseRedis: viper.GetBool("USE_REDIS"),
			Addr:     viper.GetString("REDIS_ADDR"),
			DB:       viper.GetInt("REDIS_DB"),
			TTL:      time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second,
		},
		Quote: QuoteConfig{
			BaseURL: viper.GetString("QUOTE_BASE_URL"),
			Timeout: time.Duration(viper.GetInt("QUOTE_TIMEOUT_SECONDS")) * time.Second,
		},
		Summary: SummaryConfig{
			OverrideFile: viper.GetString("SNAPSHOT_OVERRIDE_FILE"),
		},
	}

	// Validate critical fields
	validateConfig()
}

// validateConfig ensures required variables are present and terminates the
// application if they are missing or out of range.
//
// This avoids unexpected runtime failures due to incomplete configuration.
func validateConfig() {
	var missing []string

	if AppConfig.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if AppConfig.Feed.Interval <= 0 {
		missing = append(missing, "FEED_INTERVAL_SECONDS")
	}
	if AppConfig.Feed.URL == "" {
		missing = append(missing, "FEED_URL")
	}
	if AppConfig.Reconnect.BaseDelay <= 0 {
		missing = append(missing, "RECONNECT_BASE_DELAY_MS")
	}
	if AppConfig.Reconnect.MaxAttempts <= 0 {
		missing = append(missing, "RECONNECT_MAX_ATTEMPTS")
	}
	if AppConfig.Cache.TTL <= 0 {
		missing = append(missing, "CACHE_TTL_SECONDS")
	}
	if AppConfig.Cache.UseRedis && AppConfig.Cache.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if AppConfig.Quote.BaseURL == "" {
		missing = append(missing, "QUOTE_BASE_URL")
	}

	if len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}
