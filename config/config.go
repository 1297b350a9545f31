package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads the configuration from file and TRCTL_* environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// TRCTL_TRANSMISSION_PASSWORD overrides transmission.password, etc.
	v.SetEnvPrefix("trctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a default are unknown to AutomaticEnv and need a binding.
	// TRCTL_TRANSMISSION_FIELDS takes a comma separated list.
	_ = v.BindEnv("transmission.fields", "TRCTL_TRANSMISSION_FIELDS")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".trctl"))
		}

		// Check /etc
		v.AddConfigPath("/etc/trctl/")
	}

	// A missing file is fine as long as the environment provides the URL
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Transmission defaults
	v.SetDefault("transmission.url", "http://localhost:9091/transmission/rpc")
	v.SetDefault("transmission.username", "")
	v.SetDefault("transmission.password", "")
	v.SetDefault("transmission.debug", false)
	v.SetDefault("transmission.timeout", 30*time.Second)

	// Filter defaults
	v.SetDefault("filter.presets", map[string]string{})

	// Safety defaults
	v.SetDefault("safety.confirm_delete", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Transmission.URL == "" {
		return fmt.Errorf("transmission.url is required")
	}

	u, err := url.ParseRequestURI(cfg.Transmission.URL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("transmission.url is not a valid URL: %s", cfg.Transmission.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("transmission.url must use http or https: %s", cfg.Transmission.URL)
	}

	if cfg.Transmission.Password != "" && cfg.Transmission.Username == "" {
		return fmt.Errorf("transmission.password is set but transmission.username is empty")
	}

	if cfg.Transmission.Timeout < 0 {
		return fmt.Errorf("transmission.timeout must not be negative")
	}

	for name, expr := range cfg.Filter.Presets {
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("filter preset %q has an empty expression", name)
		}
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
