package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ishangarg01/cmd-gen/internal/types"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config validation failed: %v", err)
	}
	if cfg.Server.Port != 8377 {
		t.Errorf("default port = %d, want 8377", cfg.Server.Port)
	}
	if cfg.Audit.PromptTimeout != 60 {
		t.Errorf("default prompt_timeout = %d, want 60", cfg.Audit.PromptTimeout)
	}
	if len(cfg.Audit.PlaceholderDelimiters) != 3 {
		t.Errorf("default delimiters = %v, want all three", cfg.Audit.PlaceholderDelimiters)
	}
}

func TestValidate_BadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
	cfg.Server.Port = 99999
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 99999")
	}
}

func TestValidate_BadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.LogLevel = "verbose"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level: %v", err)
	}
}

func TestValidate_BadDelimiter(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.PlaceholderDelimiters = []string{"angle", "squiggle"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown delimiter")
	}
	if !strings.Contains(err.Error(), "squiggle") {
		t.Errorf("error should name the bad delimiter: %v", err)
	}
}

func TestValidate_NegativePromptTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audit.PromptTimeout = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative prompt_timeout")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing config file should load defaults: %v", err)
	}
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Error("missing file should yield default config")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
audit:
  allowed_root: "/tmp"
  prompt_timeout: 30
server:
  port: 9000
  log_level: debug
rules:
  disable_builtin: true
  extra_warn:
    - name: chatty-curl
      pattern: "curl\\s+-v"
      reason: "verbose curl leaks headers"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.LogLevel != types.LogLevelDebug {
		t.Errorf("log level = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Audit.AllowedRoot != "/tmp" {
		t.Errorf("allowed_root = %q, want /tmp", cfg.Audit.AllowedRoot)
	}
	if !cfg.Rules.DisableBuiltin {
		t.Error("disable_builtin should be true")
	}
	if len(cfg.Rules.ExtraWarn) != 1 || cfg.Rules.ExtraWarn[0].Name != "chatty-curl" {
		t.Errorf("extra_warn = %+v, want one chatty-curl rule", cfg.Rules.ExtraWarn)
	}
	// Defaults survive partial files
	if cfg.History.RetentionDays != 30 {
		t.Errorf("retention_days = %d, want default 30", cfg.History.RetentionDays)
	}
}

func TestLoad_UnknownFieldsTolerated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "servr:\n  port: 1234\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unknown fields should not fail Load: %v", err)
	}
	if cfg.Server.Port != 8377 {
		t.Errorf("typo'd section must not override defaults, port = %d", cfg.Server.Port)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestSecrets_ValidateDBKey(t *testing.T) {
	s := &Secrets{DBKey: "short"}
	if err := s.ValidateDBKey(); err == nil {
		t.Error("expected error for short key")
	}
	s.DBKey = "0123456789abcdef"
	if err := s.ValidateDBKey(); err != nil {
		t.Errorf("16-char key should validate: %v", err)
	}
	s.DBKey = ""
	if err := s.ValidateDBKey(); err != nil {
		t.Errorf("empty key (no encryption) should validate: %v", err)
	}
	if s.HasDBEncryption() {
		t.Error("empty key should report no encryption")
	}
}
