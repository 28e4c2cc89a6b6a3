// Package config loads the builder's configuration from TOML, YAML or JSON,
// applies environment overrides and validates the result.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"emailbuilder/internal/catalog"
	"emailbuilder/internal/domain"
)

// Config is the full configuration.
type Config struct {
	Database  DatabaseConfig  `toml:"database" json:"database" yaml:"database"`
	Branding  domain.Branding `toml:"branding" json:"branding" yaml:"branding"`
	Catalog   *catalog.Source `toml:"catalog" json:"catalog" yaml:"catalog"`
	Editor    EditorConfig    `toml:"editor" json:"editor" yaml:"editor"`
	Revisions RevisionConfig  `toml:"revisions" json:"revisions" yaml:"revisions"`
	Logging   LoggingConfig   `toml:"logging" json:"logging" yaml:"logging"`
	MCP       MCPConfig       `toml:"mcp" json:"mcp" yaml:"mcp"`
}

// DatabaseConfig locates the template database.
type DatabaseConfig struct {
	Path string `toml:"path" json:"path" yaml:"path" validate:"required"`
}

// EditorConfig tunes editor sessions.
type EditorConfig struct {
	// HistoryLimit caps undo snapshots per session; 0 keeps all.
	HistoryLimit int `toml:"history_limit" json:"history_limit" yaml:"history_limit" validate:"gte=0"`
	// ImportantTypes need confirmation before delete. Empty uses the built-in set.
	ImportantTypes []string `toml:"important_types" json:"important_types" yaml:"important_types"`
}

// RevisionConfig controls revision retention.
type RevisionConfig struct {
	Keep     int    `toml:"keep" json:"keep" yaml:"keep" validate:"gte=1"`
	Schedule string `toml:"schedule" json:"schedule" yaml:"schedule"` // cron spec; empty disables pruning
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" json:"format" yaml:"format" validate:"omitempty,oneof=console json"`
	Path   string `toml:"path" json:"path" yaml:"path"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	ApprovalTimeoutSec int `toml:"approval_timeout_sec" json:"approval_timeout_sec" yaml:"approval_timeout_sec" validate:"gte=1"`
}

// Dir is the default directory for the database and config file.
func Dir() string {
	if v := os.Getenv("EMAILBUILDER_DATA_DIR"); v != "" {
		return v
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "emailbuilder")
	}
	return ".emailbuilder"
}

// Path is the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: filepath.Join(Dir(), "emailbuilder.db")},
		Branding: domain.Branding{StoreName: "My Store"},
		Editor:   EditorConfig{HistoryLimit: 200},
		Revisions: RevisionConfig{
			Keep:     40,
			Schedule: "@daily",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		MCP:     MCPConfig{ApprovalTimeoutSec: 120},
	}
}

// Load reads path (defaults when it does not exist), applies environment
// overrides and validates.
func Load(path string) (*Config, error) {
	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadConfigFromFile parses by extension; unknown extensions try each format.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err == nil {
			return cfg, nil
		}
		cfg = DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried TOML, YAML): %w", err)
		}
	}
	return cfg, nil
}

// ApplyEnvOverrides lets deployments override selected fields.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("EMAILBUILDER_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("EMAILBUILDER_STORE_NAME"); v != "" {
		c.Branding.StoreName = v
	}
	if v := os.Getenv("EMAILBUILDER_PRIMARY_COLOR"); v != "" {
		c.Branding.PrimaryColor = v
	}
	if v := os.Getenv("EMAILBUILDER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("EMAILBUILDER_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Editor.HistoryLimit = n
		}
	}
	if c.Catalog != nil {
		if v := os.Getenv("EMAILBUILDER_CATALOG_PASSWORD"); v != "" {
			c.Catalog.Password = v
		}
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the retention schedule, reporting
// every problem at once.
func (c *Config) Validate() error {
	var errs error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = multierr.Append(errs, fmt.Errorf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = multierr.Append(errs, err)
		}
	}
	if c.Revisions.Schedule != "" {
		if _, err := cron.ParseStandard(c.Revisions.Schedule); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("revisions.schedule: %w", err))
		}
	}
	return errs
}

// Save writes cfg as TOML.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		f.Close()
		return fmt.Errorf("encode TOML: %w", err)
	}
	return f.Close()
}
