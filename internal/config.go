package internal

import (
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/nbbadge/internal/badge"
	"github.com/starford/nbbadge/internal/inject"
	"github.com/starford/nbbadge/internal/watch"
)

// MaxWorkers caps inject.workers.
const MaxWorkers = 64

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Inject InjectConfig      `yaml:"inject"`
	Watch  WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Inject.Validate(); err != nil {
		return err
	}
	return c.Watch.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// InjectConfig controls which notebooks are processed and where their
// badges point.
type InjectConfig struct {
	RootDir     string `yaml:"root_dir"`
	RepoBaseURL string `yaml:"repo_base_url"`
	Recursive   bool   `yaml:"recursive"`
	Workers     int    `yaml:"workers"`
	KeepGoing   bool   `yaml:"keep_going"`
	DryRun      bool   `yaml:"dry_run"`
	Detector    string `yaml:"detector"`
}

// Validate validates the inject configuration.
func (c *InjectConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RootDir, validation.Required),
		validation.Field(&c.RepoBaseURL, validation.Required, is.URL),
		validation.Field(&c.Workers, validation.Required, validation.Min(1), validation.Max(MaxWorkers)),
		validation.Field(&c.Detector, validation.In(badge.DetectorSubstring, badge.DetectorStrict)),
	)
}

// Options converts the configuration to batch options.
func (c *InjectConfig) Options() inject.Options {
	return inject.Options{
		Recursive: c.Recursive,
		Workers:   c.Workers,
		KeepGoing: c.KeepGoing,
		DryRun:    c.DryRun,
	}
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(10*time.Millisecond)),
	)
}

// NewDefaultConfig returns a Config that reproduces the tool's historical
// behaviour: the current directory, scanned recursively, linked to the
// course repository.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Inject: InjectConfig{
			RootDir:     ".",
			RepoBaseURL: badge.DefaultBaseURL,
			Recursive:   true,
			Workers:     1,
			Detector:    badge.DetectorSubstring,
		},
		Watch: WatchConfig{
			Debounce: watch.DefaultDebounce,
		},
	}
}
