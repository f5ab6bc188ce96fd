// Package config loads and validates the cmd-gen configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/types"
)

var cfgLog = logger.New("config")

// validate is the shared validator instance. Struct tags carry the simple
// range checks; Validate() adds the cross-field ones.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the cmd-gen configuration
type Config struct {
	Audit   AuditConfig   `yaml:"audit"`
	Rules   RulesConfig   `yaml:"rules"`
	Server  ServerConfig  `yaml:"server"`
	History HistoryConfig `yaml:"history"`
}

// AuditConfig holds audit pipeline settings
type AuditConfig struct {
	// AllowedRoot confines path arguments: any `..` traversal that resolves
	// outside this root is denied. Empty means the current working directory.
	AllowedRoot string `yaml:"allowed_root"`
	// PromptTimeout is the per-prompt timeout in seconds for interactive
	// placeholder collection. 0 means no timeout.
	PromptTimeout int `yaml:"prompt_timeout" validate:"gte=0,lte=3600"`
	// PlaceholderDelimiters selects which placeholder syntaxes the extractor
	// recognizes. Valid: angle, double_bracket, double_brace.
	PlaceholderDelimiters []string `yaml:"placeholder_delimiters"`
}

// RulesConfig holds risk rule registry settings
type RulesConfig struct {
	UserDir        string `yaml:"user_dir"`        // directory for user rules (default: ~/.cmd-gen/rules.d)
	DisableBuiltin bool   `yaml:"disable_builtin"` // disable embedded builtin rules
	Watch          bool   `yaml:"watch"`           // enable file watching for hot reload

	// ExtraBlock and ExtraWarn are inline rules appended after the builtin
	// and user rule files, in the order written.
	ExtraBlock []InlineRule `yaml:"extra_block"`
	ExtraWarn  []InlineRule `yaml:"extra_warn"`
}

// InlineRule is a rule defined directly in the config file.
type InlineRule struct {
	Name    string `yaml:"name" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required"`
	Reason  string `yaml:"reason"`
}

// ServerConfig holds management API server settings
type ServerConfig struct {
	Port     int            `yaml:"port" validate:"gte=1,lte=65535"`
	LogLevel types.LogLevel `yaml:"log_level"`
	NoColor  bool           `yaml:"no_color"`
}

// HistoryConfig holds decision history settings
type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	EncryptionKey string `yaml:"encryption_key"` // SQLCipher key (prefer DB_KEY env var)
	RetentionDays int    `yaml:"retention_days" validate:"gte=0,lte=36500"`
}

// ValidDelimiters is the set of recognized placeholder delimiter names.
var ValidDelimiters = map[string]bool{
	"angle":          true,
	"double_bracket": true,
	"double_brace":   true,
}

// DefaultConfigPath returns the default config file path (~/.cmd-gen/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".cmd-gen", "config.yaml")
}

// defaultDBPath returns the default history database path under ~/.cmd-gen/.
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./cmd-gen-history.db"
	}
	return filepath.Join(home, ".cmd-gen", "history.db")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Audit: AuditConfig{
			AllowedRoot:           "",
			PromptTimeout:         60,
			PlaceholderDelimiters: []string{"angle", "double_bracket", "double_brace"},
		},
		Rules: RulesConfig{
			UserDir:        "", // empty means use default ~/.cmd-gen/rules.d
			DisableBuiltin: false,
			Watch:          true,
		},
		Server: ServerConfig{
			Port:     8377,
			LogLevel: types.LogLevelInfo,
			NoColor:  false,
		},
		History: HistoryConfig{
			Enabled:       true,
			DBPath:        defaultDBPath(),
			RetentionDays: 30,
		},
	}
}

// Validate checks all Config fields and returns a multi-error report.
// Call this AFTER CLI overrides have been applied, not during Load().
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s: failed %q check (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if !c.Server.LogLevel.Valid() {
		errs = append(errs, fmt.Sprintf("server.log_level: unknown log level %q (valid: trace, debug, info, warn, error)", c.Server.LogLevel))
	}

	for _, d := range c.Audit.PlaceholderDelimiters {
		if !ValidDelimiters[d] {
			errs = append(errs, fmt.Sprintf("audit.placeholder_delimiters: unknown delimiter %q (valid: angle, double_bracket, double_brace)", d))
		}
	}

	if c.Audit.AllowedRoot != "" {
		if info, err := os.Stat(c.Audit.AllowedRoot); err == nil && !info.IsDir() {
			errs = append(errs, fmt.Sprintf("audit.allowed_root: %q is not a directory", c.Audit.AllowedRoot))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for i, e := range errs {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, e)
	}
	return fmt.Errorf("%s", sb.String())
}

// isUnknownFieldError returns true if the error is from yaml.Decoder.KnownFields(true)
// detecting an unrecognized key (e.g. typo like "servr:").
func isUnknownFieldError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found in type")
}

// Load loads configuration from a YAML file.
// Note: Load does NOT call Validate(). Callers should apply CLI overrides
// first, then call cfg.Validate() themselves.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Try strict decode to warn about unknown fields (typos like "servr:")
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if isUnknownFieldError(err) {
			cfgLog.Warn("config has unknown fields (ignored): %v", err)
			// Re-parse without strict mode for forward compatibility
			cfg = DefaultConfig()
			if err2 := yaml.Unmarshal(data, cfg); err2 != nil {
				return nil, fmt.Errorf("config parse error: %w", err2)
			}
		} else {
			return nil, fmt.Errorf("config parse error: %w", err)
		}
	}

	return cfg, nil
}
