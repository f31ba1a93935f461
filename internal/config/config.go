// Package config loads sitewalk's client configuration: a YAML file in
// the state directory, overridden by SITEWALK_* environment variables.
// A .env file in the working directory is honored for development.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultAPIBaseURL     = "https://api.sitewalk.example.com/api/v1"
	DefaultRequestTimeout = 30 * time.Second
)

// Config holds everything the client needs to talk to the inspection
// service and run the wizard.
type Config struct {
	// APIBaseURL is the root of the inspection REST API.
	APIBaseURL string `yaml:"api_base_url"`

	// StateDir holds the session file and logs. Defaults to
	// ~/.sitewalk.
	StateDir string `yaml:"state_dir"`

	// PhotoWatchDir, when set, is watched for newly dropped photo
	// files which are offered as attachments for the active item.
	PhotoWatchDir string `yaml:"photo_watch_dir"`

	// RequestTimeout bounds each individual HTTP request. Rate-limit
	// waits are on top of this, per request issue.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"verbose"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		APIBaseURL:     DefaultAPIBaseURL,
		StateDir:       filepath.Join(home, ".sitewalk"),
		RequestTimeout: DefaultRequestTimeout,
	}
}

// Load reads the config file at path (missing file is fine), then
// applies environment overrides. An empty path means
// <StateDir>/config.yaml from defaults.
func Load(path string) (Config, error) {
	// Development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = filepath.Join(cfg.StateDir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from SITEWALK_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("SITEWALK_API_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("SITEWALK_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("SITEWALK_PHOTO_DIR"); v != "" {
		c.PhotoWatchDir = v
	}
	if v := os.Getenv("SITEWALK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("SITEWALK_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Verbose = b
		}
	}
}

// Validate checks the loaded configuration for usability.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url must not be empty")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
