package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgconfig "github.com/starford/blogmigrate/pkg/config"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Source  SourceConfig      `yaml:"source"`
	Dest    DestConfig        `yaml:"dest"`
	Ledger  LedgerConfig      `yaml:"ledger"`
	Migrate MigrateConfig     `yaml:"migrate"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Dest.Validate(); err != nil {
		return err
	}
	if filepath.Clean(c.Source.Path) == filepath.Clean(c.Dest.Path) {
		return fmt.Errorf("dest: path must differ from source path %q", c.Source.Path)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level    `yaml:"log_level"`
	LogFile  LogFileConfig `yaml:"log_file"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.LogFile.Validate()
}

// LogFileConfig configures an optional rotating log file. Logging to a file
// is disabled when Path is empty.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Validate validates the log file configuration.
func (c *LogFileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// SourceConfig points at the legacy posts.
type SourceConfig struct {
	Path string `yaml:"path"`
	// IgnoreFile is a gitignore-style file, relative to Path, listing posts to skip.
	IgnoreFile string `yaml:"ignore_file"`
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.IgnoreFile, validation.By(plainFileName)),
	)
}

// DestConfig points at the migrated content tree.
type DestConfig struct {
	Path     string `yaml:"path"`
	FileName string `yaml:"file_name"`
}

// Validate validates the destination configuration.
func (c *DestConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.FileName, validation.Required, validation.By(plainFileName)),
	)
}

// LedgerConfig holds the SQLite migration ledger location. The ledger is
// disabled when Path is empty.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// Enabled returns true when a ledger path is configured.
func (c *LedgerConfig) Enabled() bool {
	return c.Path != ""
}

// MigrateConfig tunes a migration run.
type MigrateConfig struct {
	DryRun          bool `yaml:"dry_run"`
	ContinueOnError bool `yaml:"continue_on_error"`
}

func plainFileName(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if strings.ContainsAny(s, `/\`) || s == "." || s == ".." {
		return fmt.Errorf("must be a plain file name, got %q", s)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelWarn,
			LogFile: LogFileConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
		},
		Source: SourceConfig{
			Path: "./posts",
		},
		Dest: DestConfig{
			Path:     "./content/blog",
			FileName: "index.md",
		},
	}
}

// LoadConfig reads the config file at path on top of the defaults. When
// required is false a missing file leaves the defaults in place; when the
// path was chosen explicitly a missing file is an error.
func LoadConfig(path string, required bool) (*Config, error) {
	cfg := NewDefaultConfig()
	load := pkgconfig.LoadOptional[Config]
	if required {
		load = pkgconfig.Load[Config]
	}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
