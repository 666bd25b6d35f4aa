// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tilecls-go/infrastructure/logging"
	"tilecls-go/infrastructure/model"
	"tilecls-go/infrastructure/repository"
	"tilecls-go/resources"
)

// DefaultPath is the config file read when no -config flag is given.
const DefaultPath = "config.yaml"

// Config is the root configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	UI      UIConfig      `yaml:"ui"`
	History HistoryConfig `yaml:"history"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig selects and locates the classifier.
type ModelConfig struct {
	Backend        string        `yaml:"backend"`
	Dir            string        `yaml:"dir"`
	File           string        `yaml:"file"`
	Labels         string        `yaml:"labels"`
	InputSize      int           `yaml:"input_size"`
	InputName      string        `yaml:"input_name"`
	OutputName     string        `yaml:"output_name"`
	SharedLibrary  string        `yaml:"shared_library"`
	Endpoint       string        `yaml:"endpoint"`
	Timeout        time.Duration `yaml:"timeout"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

// UIConfig holds window and grid geometry.
type UIConfig struct {
	Title           string `yaml:"title"`
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	TileWidth       int    `yaml:"tile_width"`
	TileMinWidth    int    `yaml:"tile_min_width"`
	TileMinHeight   int    `yaml:"tile_min_height"`
	ButtonMinWidth  int    `yaml:"button_min_width"`
	ButtonMinHeight int    `yaml:"button_min_height"`
	TopK            int    `yaml:"top_k"`
}

// HistoryConfig controls where prediction records are kept.
type HistoryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MongoURI    string `yaml:"mongo_uri"`
	Database    string `yaml:"database"`
	RecentLimit int    `yaml:"recent_limit"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	AddSource  bool   `yaml:"add_source"`
}

// Default returns the built-in configuration.
// It matches the embedded resources/config.yaml.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Backend:        model.BackendONNX,
			Dir:            "model",
			File:           "model.onnx",
			Labels:         "labels.txt",
			InputSize:      160,
			Endpoint:       "http://localhost:8080",
			Timeout:        30 * time.Second,
			HealthInterval: 5 * time.Second,
		},
		UI: UIConfig{
			Title:           "Image Classifier",
			Width:           900,
			Height:          700,
			TileWidth:       220,
			TileMinWidth:    200,
			TileMinHeight:   150,
			ButtonMinWidth:  150,
			ButtonMinHeight: 40,
			TopK:            3,
		},
		History: HistoryConfig{
			Enabled:     false,
			MongoURI:    "mongodb://localhost:27017",
			Database:    "tilecls",
			RecentLimit: 50,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 10,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}

// Load reads the config file at path over the defaults.
// A missing file is not an error; the embedded defaults are used.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Parse(resources.DefaultConfig)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects unusable values and clamps out-of-range numbers to defaults.
func (c *Config) Validate() error {
	def := Default()

	switch c.Model.Backend {
	case "":
		c.Model.Backend = def.Model.Backend
	case model.BackendONNX, model.BackendHTTP:
	default:
		return fmt.Errorf("%w: %q", model.ErrUnknownBackend, c.Model.Backend)
	}
	if c.Model.Backend == model.BackendHTTP && c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required for the http backend")
	}
	if c.Model.InputSize <= 0 {
		c.Model.InputSize = def.Model.InputSize
	}
	if c.Model.Timeout <= 0 {
		c.Model.Timeout = def.Model.Timeout
	}
	if c.Model.HealthInterval <= 0 {
		c.Model.HealthInterval = def.Model.HealthInterval
	}

	if c.UI.Title == "" {
		c.UI.Title = def.UI.Title
	}
	c.UI.Width = atLeast(c.UI.Width, 320, def.UI.Width)
	c.UI.Height = atLeast(c.UI.Height, 240, def.UI.Height)
	c.UI.TileWidth = atLeast(c.UI.TileWidth, 1, def.UI.TileWidth)
	c.UI.TileMinWidth = atLeast(c.UI.TileMinWidth, 1, def.UI.TileMinWidth)
	c.UI.TileMinHeight = atLeast(c.UI.TileMinHeight, 1, def.UI.TileMinHeight)
	c.UI.ButtonMinWidth = atLeast(c.UI.ButtonMinWidth, 1, def.UI.ButtonMinWidth)
	c.UI.ButtonMinHeight = atLeast(c.UI.ButtonMinHeight, 1, def.UI.ButtonMinHeight)
	if c.UI.TopK < 0 {
		c.UI.TopK = 0
	}

	if c.History.Enabled && c.History.MongoURI == "" {
		return fmt.Errorf("history.mongo_uri is required when history is enabled")
	}
	if c.History.Database == "" {
		c.History.Database = def.History.Database
	}
	c.History.RecentLimit = atLeast(c.History.RecentLimit, 1, def.History.RecentLimit)

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// atLeast returns v, or def when v is below lower.
func atLeast(v, lower, def int) int {
	if v < lower {
		return def
	}
	return v
}

// SlogLevel parses the configured level name.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// ToLoggingConfig converts to the logging package configuration.
func (c *Config) ToLoggingConfig() *logging.Config {
	level, _ := c.Logging.SlogLevel()
	return &logging.Config{
		Level:      level,
		Dir:        c.Logging.Dir,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
		Compress:   c.Logging.Compress,
		AddSource:  c.Logging.AddSource,
	}
}

// ToModelConfig converts to the model package configuration.
func (c *Config) ToModelConfig(logger *slog.Logger) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Backend = c.Model.Backend
	cfg.Dir = c.Model.Dir
	cfg.ModelFile = c.Model.File
	cfg.LabelFile = c.Model.Labels
	cfg.InputSize = c.Model.InputSize
	cfg.InputName = c.Model.InputName
	cfg.OutputName = c.Model.OutputName
	cfg.SharedLibraryPath = c.Model.SharedLibrary
	cfg.BaseURL = c.Model.Endpoint
	cfg.Timeout = c.Model.Timeout
	cfg.HealthInterval = c.Model.HealthInterval
	cfg.Logger = logger
	return cfg
}

// ToMongoDBConfig converts the history section to a MongoDB configuration.
func (c *Config) ToMongoDBConfig() *repository.MongoDBConfig {
	cfg := repository.DefaultMongoDBConfig()
	cfg.URI = c.History.MongoURI
	cfg.Database = c.History.Database
	return cfg
}
