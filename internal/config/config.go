// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is everything the binary needs at startup.
type Config struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	MetricsPort int    `mapstructure:"metrics_port"`

	// StoreBackend selects the persistence backend: postgres, sqlite or json.
	StoreBackend string `mapstructure:"store_backend"`
	PostgresDSN  string `mapstructure:"postgres_dsn"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	JSONPath     string `mapstructure:"json_path"`

	GCPProject          string  `mapstructure:"gcp_project"`
	GCPLocation         string  `mapstructure:"gcp_location"`
	CredentialsFile     string  `mapstructure:"credentials_file"`
	TextModel           string  `mapstructure:"text_model"`
	ImageModel          string  `mapstructure:"image_model"`
	ModelCallsPerSecond float64 `mapstructure:"model_calls_per_second"`

	CatalogURI string `mapstructure:"catalog_uri"`

	// TrendsChannel selects the export retrieval strategy: clipboard or download.
	TrendsChannel string `mapstructure:"trends_channel"`
	Headless      bool   `mapstructure:"headless"`
}

// Load reads configuration from PROMOGEN_-prefixed environment variables,
// after best-effort loading a .env file from the working directory.
func Load() (*Config, error) {
	// missing .env is the normal production case
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROMOGEN")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("metrics_port", 0)
	v.SetDefault("store_backend", "sqlite")
	v.SetDefault("sqlite_path", "promogen.db")
	v.SetDefault("json_path", "promotions.ndjson")
	v.SetDefault("gcp_location", "us-central1")
	v.SetDefault("text_model", "gemini-2.5-flash")
	v.SetDefault("image_model", "gemini-2.5-flash-image")
	v.SetDefault("model_calls_per_second", 1.0)
	v.SetDefault("trends_channel", "clipboard")
	v.SetDefault("headless", true)

	// AutomaticEnv alone does not surface env values through Unmarshal;
	// each key has to be bound explicitly.
	keys := []string{
		"listen_addr", "metrics_port", "store_backend", "postgres_dsn",
		"sqlite_path", "json_path", "gcp_project", "gcp_location",
		"credentials_file", "text_model", "image_model",
		"model_calls_per_second", "catalog_uri", "trends_channel", "headless",
	}
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", k, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch cfg.StoreBackend {
	case "postgres", "sqlite", "json":
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	switch cfg.TrendsChannel {
	case "clipboard", "download":
	default:
		return nil, fmt.Errorf("unknown trends channel %q", cfg.TrendsChannel)
	}

	return &cfg, nil
}
