package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "foliotalk"

// StompConfig defines the broker connection parameters
type StompConfig struct {
	URL            string        `json:"url"`            // WebSocket broker URL
	Login          string        `json:"login"`          // Broker login (guest tier)
	Passcode       string        `json:"passcode"`       // Broker passcode
	Heartbeat      time.Duration `json:"heartbeat"`      // Heartbeat interval, both directions
	ReconnectDelay time.Duration `json:"reconnectDelay"` // Fixed delay between reconnect attempts
}

// APIConfig defines the REST backend parameters
type APIConfig struct {
	BaseURL string        `json:"baseURL"`
	Timeout time.Duration `json:"timeout"` // Client-side request timeout
}

// ChatConfig defines conversation view parameters
type ChatConfig struct {
	HistoryPageSize int    `json:"historyPageSize"` // Items per history page
	SortField       string `json:"sortField"`
	SortOrder       string `json:"sortOrder"`
}

// ReaderConfig defines document view parameters
type ReaderConfig struct {
	DefaultScale float64       `json:"defaultScale"`
	MinScale     float64       `json:"minScale"`
	MaxScale     float64       `json:"maxScale"`
	ScaleStep    float64       `json:"scaleStep"`
	PageCacheTTL time.Duration `json:"pageCacheTTL"` // TTL for decoded page rasters
}

// Config is the main configuration structure for the client
type Config struct {
	API    APIConfig    `json:"api"`
	Stomp  StompConfig  `json:"stomp"`
	Chat   ChatConfig   `json:"chat"`
	Reader ReaderConfig `json:"reader"`
	Debug  bool         `json:"debug"`
}

// Load initializes the configuration from config files and environment
// variables. Environment variables use the FOLIOTALK_ prefix, e.g.
// FOLIOTALK_API_BASEURL.
func Load(debug bool) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(fmt.Sprintf("$XDG_CONFIG_HOME/%s", appName))
	v.AddConfigPath(fmt.Sprintf("$HOME/.config/%s", appName))
	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env cover it
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{Debug: debug}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.baseURL", "http://localhost:8080")
	v.SetDefault("api.timeout", 10*time.Second)

	v.SetDefault("stomp.url", "ws://localhost:15674/ws")
	v.SetDefault("stomp.login", "guest")
	v.SetDefault("stomp.passcode", "guest")
	v.SetDefault("stomp.heartbeat", 4*time.Second)
	v.SetDefault("stomp.reconnectDelay", 5*time.Second)

	v.SetDefault("chat.historyPageSize", 10)
	v.SetDefault("chat.sortField", "id")
	v.SetDefault("chat.sortOrder", "asc")

	v.SetDefault("reader.defaultScale", 1.0)
	v.SetDefault("reader.minScale", 0.5)
	v.SetDefault("reader.maxScale", 3.0)
	v.SetDefault("reader.scaleStep", 0.2)
	v.SetDefault("reader.pageCacheTTL", 5*time.Minute)
}
