package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./reeltrack.db" {
			t.Errorf("expected database path ./reeltrack.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Backend.Timeout != 10*time.Second {
			t.Errorf("expected backend timeout 10s, got %s", config.Backend.Timeout)
		}

		if config.Sitemap.PerTypeLimit != 1000 {
			t.Errorf("expected per type limit 1000, got %d", config.Sitemap.PerTypeLimit)
		}

		google, ok := config.OAuth["google"]
		if !ok {
			t.Fatal("expected google oauth provider in defaults")
		}
		if google.Configured() {
			t.Error("placeholder credentials should not count as configured")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[backend]
base_url = "https://api.example.com"
timeout = "3s"

[server]
host = "0.0.0.0"
port = 8080

[oauth.github]
client_id = "gh_client"
client_secret = "gh_secret"

[sitemap]
per_type_limit = 500
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Backend.BaseURL != "https://api.example.com" {
			t.Errorf("expected backend url override, got %s", config.Backend.BaseURL)
		}
		if config.Backend.Timeout != 3*time.Second {
			t.Errorf("expected 3s timeout, got %s", config.Backend.Timeout)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}
		if config.Database.Path != "./reeltrack.db" {
			t.Errorf("expected default database path to survive, got %s", config.Database.Path)
		}
		if !config.OAuth["github"].Configured() {
			t.Error("expected github provider to be configured")
		}
		if config.Sitemap.PerTypeLimit != 500 {
			t.Errorf("expected per type limit 500, got %d", config.Sitemap.PerTypeLimit)
		}
	})

	t.Run("Environment overrides", func(t *testing.T) {
		t.Setenv("BACKEND_URL", "http://backend:4000/api")
		t.Setenv("SITE_URL", "https://reeltrack.example")

		config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Backend.BaseURL != "http://backend:4000/api" {
			t.Errorf("expected BACKEND_URL override, got %s", config.Backend.BaseURL)
		}
		if config.Server.SiteURL != "https://reeltrack.example" {
			t.Errorf("expected SITE_URL override, got %s", config.Server.SiteURL)
		}
	})

	t.Run("Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		os.WriteFile(configPath, []byte("[server\nport ="), 0644)

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected parse error")
		}
	})
}
