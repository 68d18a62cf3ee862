// Package config loads renamer settings from defaults, an optional YAML file,
// RENAMER_* environment variables and command-line flags, in rising priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config is the full renamer configuration.
type Config struct {
	Manifest       string        `mapstructure:"manifest"`
	NewColumnNames []string      `mapstructure:"new_column_names"`
	TargetFolder   string        `mapstructure:"target_folder"`
	Log            LogConfig     `mapstructure:"log"`
	History        HistoryConfig `mapstructure:"history"`
	Trigger        TriggerConfig `mapstructure:"trigger"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"` // text | json
	Output    string `mapstructure:"output"` // stdout | stderr | file
	FilePath  string `mapstructure:"file_path"`
	AddSource bool   `mapstructure:"add_source"`
}

// HistoryConfig controls the sqlite run history.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// TriggerConfig controls repeated runs. Both empty means run once.
type TriggerConfig struct {
	Watch    bool   `mapstructure:"watch"`
	Schedule string `mapstructure:"schedule"` // cron expression
}

// Default returns the reference invocation settings.
func Default() Config {
	return Config{
		Manifest:       "data/bronze/metadata.yaml",
		NewColumnNames: []string{"reference_date", "price", "product"},
		TargetFolder:   "data/silver",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		History: HistoryConfig{
			Path: "data/.renamer/history.db",
		},
	}
}

// SetDefaults registers Default() on v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("new_column_names", d.NewColumnNames)
	v.SetDefault("target_folder", d.TargetFolder)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("log.file_path", d.Log.FilePath)
	v.SetDefault("log.add_source", d.Log.AddSource)
	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.path", d.History.Path)
	v.SetDefault("trigger.watch", d.Trigger.Watch)
	v.SetDefault("trigger.schedule", d.Trigger.Schedule)
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("RENAMER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configPath (or renamer.yaml from . or ./configs when empty) into
// v and returns the validated result. A missing default config file is not an
// error; a missing explicit one is.
func Load(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("renamer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// RENAMER_NEW_COLUMN_NAMES arrives as one string; lists from the config
	// file or --names are already split and kept as written.
	if raw, ok := v.Get("new_column_names").(string); ok {
		v.Set("new_column_names", splitNames(raw))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Manifest == "" {
		return fmt.Errorf("manifest is required")
	}
	if len(c.NewColumnNames) == 0 {
		return fmt.Errorf("new_column_names must not be empty")
	}
	for i, n := range c.NewColumnNames {
		if n == "" {
			return fmt.Errorf("new_column_names[%d] is empty", i)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s, must be 'json' or 'text'", c.Log.Format)
	}
	switch c.Log.Output {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			return fmt.Errorf("log.file_path is required when log.output is 'file'")
		}
	default:
		return fmt.Errorf("invalid log output: %s", c.Log.Output)
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path is required when history is enabled")
	}
	if c.Trigger.Schedule != "" {
		if _, err := cron.ParseStandard(c.Trigger.Schedule); err != nil {
			return fmt.Errorf("invalid trigger.schedule %q: %w", c.Trigger.Schedule, err)
		}
	}
	return nil
}

// splitNames splits a comma-separated list and trims each name. Empty names
// are kept so Validate reports them.
func splitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
