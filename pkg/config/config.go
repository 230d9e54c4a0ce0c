package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yair/encore/pkg/logging"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	APIs     APIConfig      `json:"apis" yaml:"apis"`
	Query    QueryConfig    `json:"query" yaml:"query"`
	Log      logging.Config `json:"log" yaml:"log"`
	QueryLog QueryLogConfig `json:"query_log" yaml:"query_log"`
}

// ServerConfig for HTTP server settings
type ServerConfig struct {
	Port         string `json:"port" yaml:"port"`
	ReadTimeout  int    `json:"read_timeout_seconds" yaml:"read_timeout_seconds"`
	WriteTimeout int    `json:"write_timeout_seconds" yaml:"write_timeout_seconds"`
	QueryTimeout int    `json:"query_timeout_seconds" yaml:"query_timeout_seconds"`
	// EnableWebSocket defaults to true when unset.
	EnableWebSocket *bool `json:"enable_websocket,omitempty" yaml:"enable_websocket,omitempty"`
}

// APIConfig holds the upstream provider settings
type APIConfig struct {
	ITunes      ITunesConfig      `json:"itunes" yaml:"itunes"`
	Bandsintown BandsintownConfig `json:"bandsintown" yaml:"bandsintown"`
	Lyrics      LyricsConfig      `json:"lyrics" yaml:"lyrics"`
	Weather     WeatherConfig     `json:"weather" yaml:"weather"`
	// Timeout is shared by every provider's HTTP client.
	Timeout int `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type ITunesConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Country string `json:"country" yaml:"country"`
}

type BandsintownConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	AppID   string `json:"app_id" yaml:"app_id"`
}

type LyricsConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
}

type WeatherConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// QueryConfig bounds query execution
type QueryConfig struct {
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
	MaxDepth       int `json:"max_depth" yaml:"max_depth"`
}

// QueryLogConfig for the sqlite query history
type QueryLogConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Load reads configuration from a JSON or YAML file and environment variables.
// Environment variables override file values using the pattern ENCORE_SECTION_KEY
func Load(configPath string) (*Config, error) {
	config := &Config{}

	// Load from file if it exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := unmarshal(configPath, data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	applyDefaults(config)

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	return config, nil
}

func unmarshal(path string, data []byte, config *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	default:
		return json.Unmarshal(data, config)
	}
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30
	}
	if config.Server.WriteTimeout == 0 {
		config.Server.WriteTimeout = 30
	}
	if config.Server.QueryTimeout == 0 {
		config.Server.QueryTimeout = 30
	}
	if config.Server.EnableWebSocket == nil {
		enabled := true
		config.Server.EnableWebSocket = &enabled
	}
	if config.APIs.ITunes.BaseURL == "" {
		config.APIs.ITunes.BaseURL = "https://itunes.apple.com"
	}
	if config.APIs.ITunes.Country == "" {
		config.APIs.ITunes.Country = "us"
	}
	if config.APIs.Bandsintown.BaseURL == "" {
		config.APIs.Bandsintown.BaseURL = "https://rest.bandsintown.com"
	}
	if config.APIs.Lyrics.BaseURL == "" {
		config.APIs.Lyrics.BaseURL = "https://api.lyrics.ovh"
	}
	if config.APIs.Weather.BaseURL == "" {
		config.APIs.Weather.BaseURL = "https://www.metaweather.com"
	}
	if config.APIs.Timeout == 0 {
		config.APIs.Timeout = 10
	}
	if config.Query.MaxConcurrency == 0 {
		config.Query.MaxConcurrency = 16
	}
	if config.Query.MaxDepth == 0 {
		config.Query.MaxDepth = 10
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.QueryLog.Path == "" {
		config.QueryLog.Path = "./encore.db"
	}
}

func applyEnvOverrides(config *Config) error {
	// Server overrides
	if v := os.Getenv("ENCORE_SERVER_PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("ENCORE_SERVER_ENABLE_WEBSOCKET"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENCORE_SERVER_ENABLE_WEBSOCKET: %w", err)
		}
		config.Server.EnableWebSocket = &enabled
	}

	// API overrides
	if v := os.Getenv("ENCORE_ITUNES_BASE_URL"); v != "" {
		config.APIs.ITunes.BaseURL = v
	}
	if v := os.Getenv("ENCORE_ITUNES_COUNTRY"); v != "" {
		config.APIs.ITunes.Country = v
	}
	if v := os.Getenv("ENCORE_BANDSINTOWN_BASE_URL"); v != "" {
		config.APIs.Bandsintown.BaseURL = v
	}
	if v := os.Getenv("ENCORE_BANDSINTOWN_APP_ID"); v != "" {
		config.APIs.Bandsintown.AppID = v
	}
	if v := os.Getenv("ENCORE_LYRICS_BASE_URL"); v != "" {
		config.APIs.Lyrics.BaseURL = v
	}
	if v := os.Getenv("ENCORE_WEATHER_BASE_URL"); v != "" {
		config.APIs.Weather.BaseURL = v
	}

	// Logging and history
	if v := os.Getenv("ENCORE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := os.Getenv("ENCORE_QUERY_LOG_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ENCORE_QUERY_LOG_ENABLED: %w", err)
		}
		config.QueryLog.Enabled = enabled
	}
	if v := os.Getenv("ENCORE_QUERY_LOG_PATH"); v != "" {
		config.QueryLog.Path = v
	}
	return nil
}

// WebSocketEnabled reports whether /graphql accepts websocket upgrades.
func (c *ServerConfig) WebSocketEnabled() bool {
	return c.EnableWebSocket == nil || *c.EnableWebSocket
}

func (c *ServerConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

func (c *APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Validate checks if required configurations are present
func (c *Config) Validate() error {
	var missing []string

	if c.APIs.Bandsintown.AppID == "" {
		missing = append(missing, "apis.bandsintown.app_id")
	}
	if c.QueryLog.Enabled && c.QueryLog.Path == "" {
		missing = append(missing, "query_log.path")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Query.MaxConcurrency < 0 || c.Query.MaxDepth < 0 {
		return fmt.Errorf("query limits must not be negative")
	}

	return nil
}
