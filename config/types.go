package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Transmission TransmissionConfig `mapstructure:"transmission"`
	Filter       FilterConfig       `mapstructure:"filter"`
	Safety       SafetyConfig       `mapstructure:"safety"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// TransmissionConfig holds Transmission RPC connection details
type TransmissionConfig struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Fields   []string      `mapstructure:"fields"`
	Debug    bool          `mapstructure:"debug"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FilterConfig contains named filter expressions for the list command
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// SafetyConfig contains safety-related settings
type SafetyConfig struct {
	ConfirmDelete bool `mapstructure:"confirm_delete"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}
