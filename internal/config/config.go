// Package config provides configuration types and defaults for implindex.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/fragment"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/tracing"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// AttachMode controls when the consumer attaches relative to loading.
type AttachMode string

const (
	// AttachEarly attaches the consumer before fragments load; every module is forwarded.
	AttachEarly AttachMode = "early"
	// AttachLate loads fragments first; they are buffered and replayed on attach.
	AttachLate AttachMode = "late"
)

// ParseAttachMode validates an attach mode name. Empty means late.
func ParseAttachMode(s string) (AttachMode, error) {
	switch AttachMode(s) {
	case "", AttachLate:
		return AttachLate, nil
	case AttachEarly:
		return AttachEarly, nil
	default:
		return "", fmt.Errorf("%w: attach must be \"early\" or \"late\", got %q", ErrInvalidConfig, s)
	}
}

// Config holds all configuration options for implindex.
type Config struct {
	FragmentsDir    string         `mapstructure:"fragments_dir"`
	Format          string         `mapstructure:"format"`           // json, yaml or msgpack
	DuplicatePolicy string         `mapstructure:"duplicate_policy"` // overwrite, reject or merge-append
	Attach          string         `mapstructure:"attach"`           // early or late
	LoadConcurrency int            `mapstructure:"load_concurrency"` // 0 = GOMAXPROCS
	Cache           CacheConfig    `mapstructure:"cache"`
	Watch           WatchConfig    `mapstructure:"watch"`
	Store           StoreConfig    `mapstructure:"store"`
	UI              UIConfig       `mapstructure:"ui"`
	Tracing         tracing.Config `mapstructure:"tracing"`
}

// CacheConfig configures the consumer lookup cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // 0 disables caching
}

// WatchConfig configures the fragment directory watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// StoreConfig configures the snapshot database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// UIConfig holds terminal output options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark" (default), "light" or "notty"
	Width         int    `mapstructure:"width"`          // word wrap for rendered markdown
}

// DefaultStorePath returns ~/.implindex/snapshots.db, or a relative path if the
// home directory is unavailable.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".implindex", "snapshots.db")
	}
	return filepath.Join(home, ".implindex", "snapshots.db")
}

// DefaultTracesFilePath returns ~/.config/implindex/traces/traces.jsonl or an
// empty string if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "implindex", "traces", "traces.jsonl")
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		FragmentsDir:    "fragments",
		Format:          string(fragment.FormatJSON),
		DuplicatePolicy: implementors.PolicyOverwrite.String(),
		Attach:          string(AttachLate),
		LoadConcurrency: 0,
		Cache:           CacheConfig{TTL: 10 * time.Minute},
		Watch:           WatchConfig{Debounce: 250 * time.Millisecond},
		Store:           StoreConfig{Path: DefaultStorePath()},
		UI:              UIConfig{MarkdownStyle: "dark", Width: 80},
		Tracing:         tracing.DefaultConfig(),
	}
}

// Validate checks every option and returns the first problem found, wrapped
// in ErrInvalidConfig.
func Validate(c Config) error {
	if _, err := fragment.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: format: %w", ErrInvalidConfig, err)
	}
	if _, err := implementors.ParseDuplicatePolicy(c.DuplicatePolicy); err != nil {
		return fmt.Errorf("%w: duplicate_policy: %w", ErrInvalidConfig, err)
	}
	if _, err := ParseAttachMode(c.Attach); err != nil {
		return err
	}
	if c.LoadConcurrency < 0 {
		return fmt.Errorf("%w: load_concurrency must not be negative, got %d", ErrInvalidConfig, c.LoadConcurrency)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative, got %s", ErrInvalidConfig, c.Cache.TTL)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative, got %s", ErrInvalidConfig, c.Watch.Debounce)
	}
	switch c.UI.MarkdownStyle {
	case "", "dark", "light", "notty":
	default:
		return fmt.Errorf("%w: ui.markdown_style must be \"dark\", \"light\" or \"notty\", got %q", ErrInvalidConfig, c.UI.MarkdownStyle)
	}
	return ValidateTracing(c.Tracing)
}

// ValidateTracing checks the tracing section.
func ValidateTracing(t tracing.Config) error {
	if t.SampleRate < 0.0 || t.SampleRate > 1.0 {
		return fmt.Errorf("%w: tracing.sample_rate must be between 0.0 and 1.0, got %v", ErrInvalidConfig, t.SampleRate)
	}

	if t.Exporter != "" {
		switch t.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("%w: tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", ErrInvalidConfig, t.Exporter)
		}
	}

	// Path requirements only matter when tracing is on
	if t.Enabled {
		if t.Exporter == "file" && t.FilePath == "" {
			return fmt.Errorf("%w: tracing.file_path is required when exporter is \"file\"", ErrInvalidConfig)
		}
		if t.Exporter == "otlp" && t.OTLPEndpoint == "" {
			return fmt.Errorf("%w: tracing.otlp_endpoint is required when exporter is \"otlp\"", ErrInvalidConfig)
		}
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# implindex configuration

# Directory holding one fragment file per module
fragments_dir: fragments

# Encoding used by 'export': json (default), yaml or msgpack
format: json

# What happens when a module is registered twice before a consumer attaches:
#   overwrite     - the later registration replaces the earlier one (default)
#   reject        - a differing duplicate is an error; an identical one is ignored
#   merge-append  - records not already present are appended
duplicate_policy: overwrite

# When the consumer attaches during 'build':
#   late  - load every fragment first, then attach and replay (default)
#   early - attach first; every fragment is forwarded as it loads
attach: late

# Fragments decoded at once (0 = number of CPUs)
load_concurrency: 0

# Consumer lookup cache
cache:
  ttl: 10m            # 0 disables caching

# Fragment directory watcher ('watch' command)
watch:
  debounce: 250ms

# Snapshot database ('build --save', 'history')
# store:
#   path: ~/.implindex/snapshots.db

# Terminal rendering ('show')
ui:
  markdown_style: dark  # dark, light or notty
  width: 80

# Distributed tracing
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/implindex/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#   service_name: implindex
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
