// Package config loads formcoach settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/formcoach/internal/classifier"
	"github.com/ayusman/formcoach/internal/exercise"
	"github.com/ayusman/formcoach/internal/pose"
	"github.com/ayusman/formcoach/internal/session"
	"github.com/ayusman/formcoach/internal/window"
)

// Environment variables that override file settings.
const (
	EnvAddr     = "FORMCOACH_ADDR"
	EnvDB       = "FORMCOACH_DB"
	EnvModel    = "FORMCOACH_MODEL"
	EnvModelURL = "FORMCOACH_MODEL_URL"
	EnvLogLevel = "FORMCOACH_LOG_LEVEL"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Model   ModelConfig   `yaml:"model"`
	Session SessionConfig `yaml:"session"`

	// Thresholds overrides the built-in counter thresholds, keyed by exercise slug.
	Thresholds map[string]exercise.Thresholds `yaml:"thresholds"`

	PluginDir string `yaml:"plugin_dir"`
	Tray      bool   `yaml:"tray"`
	LogLevel  string `yaml:"log_level"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	// DSN is a SQLite file path or a postgres:// URL.
	DSN string `yaml:"dsn"`
}

// ModelConfig configures the form classifier.
type ModelConfig struct {
	classifier.ModelConfig `yaml:",inline"`

	Confidence float64  `yaml:"confidence"`
	Labels     []string `yaml:"labels"`
	Priority   []string `yaml:"priority"`
}

// SessionConfig configures per-client sessions.
type SessionConfig struct {
	WindowSize    int           `yaml:"window_size"`
	MinVisibility float64       `yaml:"min_visibility"`
	StopGesture   GestureConfig `yaml:"stop_gesture"`
}

// GestureConfig configures the optional hold-still stop gesture.
type GestureConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Hold      time.Duration `yaml:"hold"`
	Tolerance float64       `yaml:"tolerance"`
	Landmark  string        `yaml:"landmark"`
}

// DataDir returns the per-user data directory (~/.formcoach).
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formcoach"
	}
	return filepath.Join(home, ".formcoach")
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := DataDir()
	gesture := session.DefaultGestureConfig()

	model := classifier.DefaultModelConfig()
	model.Path = filepath.Join(dataDir, "pushup_form.onnx")

	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Store: StoreConfig{
			DSN: filepath.Join(dataDir, "formcoach.db"),
		},
		Model: ModelConfig{
			ModelConfig: model,
			Confidence:  classifier.DefaultConfidence,
			Labels:      classifier.Labels(),
		},
		Session: SessionConfig{
			WindowSize: window.DefaultSize,
			StopGesture: GestureConfig{
				Hold:      gesture.Hold,
				Tolerance: gesture.Tolerance,
				Landmark:  pose.Names[gesture.Landmark],
			},
		},
		PluginDir: filepath.Join(dataDir, "plugins"),
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path (if any) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv(EnvAddr); ok {
		c.Server.Addr = v
	}
	if v, ok := os.LookupEnv(EnvDB); ok {
		c.Store.DSN = v
	}
	if v, ok := os.LookupEnv(EnvModel); ok {
		c.Model.Path = v
	}
	if v, ok := os.LookupEnv(EnvModelURL); ok {
		c.Model.URL = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.LogLevel = v
	}
}

// Validate checks the configuration for values the application cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required"))
	}
	if c.Session.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("session.window_size must be positive, got %d", c.Session.WindowSize))
	} else if c.Model.URL == "" && c.Model.Path != "" && c.Session.WindowSize != window.DefaultSize {
		// The ONNX export takes a fixed (1, 20, n) input.
		errs = append(errs, fmt.Errorf("session.window_size must be %d for an onnx model, got %d", window.DefaultSize, c.Session.WindowSize))
	}
	if c.Session.MinVisibility < 0 || c.Session.MinVisibility >= 1 {
		errs = append(errs, fmt.Errorf("session.min_visibility must be in [0, 1), got %g", c.Session.MinVisibility))
	}
	if c.Model.Confidence <= 0 || c.Model.Confidence >= 1 {
		errs = append(errs, fmt.Errorf("model.confidence must be in (0, 1), got %g", c.Model.Confidence))
	}
	if len(c.Model.Labels) == 0 {
		errs = append(errs, errors.New("model.labels must not be empty"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	for slug, th := range c.Thresholds {
		if _, err := exercise.ParseType(slug); err != nil {
			errs = append(errs, fmt.Errorf("thresholds: %w", err))
			continue
		}
		if err := th.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("thresholds.%s: %w", slug, err))
		}
	}

	if g := c.Session.StopGesture; g.Enabled {
		if g.Hold <= 0 {
			errs = append(errs, errors.New("session.stop_gesture.hold must be positive"))
		}
		if _, ok := landmarkIndex(g.Landmark); !ok {
			errs = append(errs, fmt.Errorf("session.stop_gesture.landmark: unknown landmark %q", g.Landmark))
		}
	}

	return errors.Join(errs...)
}

// ApplyThresholds installs the configured threshold overrides into reg.
func (c Config) ApplyThresholds(reg *exercise.Registry) error {
	for slug, th := range c.Thresholds {
		typ, err := exercise.ParseType(slug)
		if err != nil {
			return err
		}
		if err := reg.SetThresholds(typ, th); err != nil {
			return fmt.Errorf("%s: %w", slug, err)
		}
	}
	return nil
}

// ClassifierOptions returns the classifier options for the model section.
func (c Config) ClassifierOptions() []classifier.Option {
	opts := []classifier.Option{
		classifier.WithConfidence(c.Model.Confidence),
		classifier.WithLabels(c.Model.Labels...),
	}
	if len(c.Model.Priority) > 0 {
		opts = append(opts, classifier.WithPriority(c.Model.Priority...))
	}
	return opts
}

// StopGesture returns the session gesture configuration, or a disabled one.
func (c Config) StopGesture() session.GestureConfig {
	g := c.Session.StopGesture
	if !g.Enabled {
		return session.GestureConfig{}
	}
	idx, _ := landmarkIndex(g.Landmark)
	return session.GestureConfig{
		Hold:      g.Hold,
		Tolerance: g.Tolerance,
		Landmark:  idx,
	}
}

// Level returns the parsed log level, defaulting to info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func landmarkIndex(name string) (int, bool) {
	for i, n := range pose.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
