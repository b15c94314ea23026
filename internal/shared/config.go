package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig                  `toml:"backend"`
	Server   ServerConfig                   `toml:"server"`
	Database DatabaseConfig                 `toml:"database"`
	Redis    RedisConfig                    `toml:"redis"`
	OAuth    map[string]OAuthProviderConfig `toml:"oauth"`
	Sitemap  SitemapConfig                  `toml:"sitemap"`
	Log      LogConfig                      `toml:"log"`
}

// BackendConfig describes the upstream REST API that owns content, reviews, watchlists and accounts.
type BackendConfig struct {
	BaseURL       string        `toml:"base_url"`
	Timeout       time.Duration `toml:"timeout"`
	RatePerSecond float64       `toml:"rate_per_second"`
	Burst         int           `toml:"burst"`
	CacheTTL      time.Duration `toml:"cache_ttl"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host          string  `toml:"host"`
	Port          int     `toml:"port"`
	SiteURL       string  `toml:"site_url"`
	CookieSecure  bool    `toml:"cookie_secure"`
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig enables the shared redis cache when URL is set.
type RedisConfig struct {
	URL string `toml:"url"`
}

// OAuthProviderConfig contains the OAuth2 client registration for a single login provider.
type OAuthProviderConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURL  string   `toml:"redirect_url"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	Scopes       []string `toml:"scopes"`
}

// Configured reports whether the provider has real credentials.
func (o OAuthProviderConfig) Configured() bool {
	return o.ClientID != "" && !strings.HasPrefix(o.ClientID, "your_")
}

// SitemapConfig bounds sitemap generation.
type SitemapConfig struct {
	PerTypeLimit int           `toml:"per_type_limit"`
	PageSize     int           `toml:"page_size"`
	CacheTTL     time.Duration `toml:"cache_ttl"`
	StaticPages  []string      `toml:"static_pages"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, and environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyEnv()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ApplyEnv overrides file values with BACKEND_URL, SITE_URL and REDIS_URL when they are set.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("BACKEND_URL")); v != "" {
		c.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SITE_URL")); v != "" {
		c.Server.SiteURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		c.Redis.URL = v
	}
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadOrDefault loads path when it exists and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		config := DefaultConfig()
		config.ApplyEnv()
		return config, nil
	}
	return LoadConfig(path)
}
