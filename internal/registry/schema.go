package registry

import (
	"errors"
	"fmt"

	"github.com/ishangarg01/cmd-gen/internal/types"
)

// RuleSet represents a collection of risk rules from a YAML file
type RuleSet struct {
	Version int        `yaml:"version" json:"version"`
	Rules   []RiskRule `yaml:"rules" json:"rules"`
}

// RiskRule is a named risk signature with a severity and a human-readable
// reason. A rule matches a command when its Pattern regex matches the
// normalized command text, or when any extracted path argument matches one
// of its Paths globs. Rules are data, not code.
type RiskRule struct {
	Name     string         `yaml:"name" json:"name"`
	Pattern  string         `yaml:"pattern,omitempty" json:"pattern,omitempty"` // regex over the normalized command
	Paths    []string       `yaml:"paths,omitempty" json:"paths,omitempty"`     // glob patterns over extracted path args
	Severity types.Severity `yaml:"severity" json:"severity"`
	Reason   string         `yaml:"reason" json:"reason"`

	// Runtime fields
	Source   Source `yaml:"-" json:"source,omitempty"`
	FilePath string `yaml:"-" json:"file_path,omitempty"`
}

// Source represents the origin of a rule.
type Source string

// Rule sources
const (
	SourceBuiltin Source = "builtin"
	SourceUser    Source = "user"
	SourceConfig  Source = "config"
)

// Validate checks if the rule is well-formed
func (r *RiskRule) Validate() error {
	if r.Name == "" {
		return errors.New("rule name is required")
	}
	if r.Reason == "" {
		return errors.New("rule reason is required")
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("invalid severity %q (valid: block, warn)", r.Severity)
	}
	if r.Pattern == "" && len(r.Paths) == 0 {
		return errors.New("pattern or paths is required")
	}
	if r.Pattern != "" {
		if err := ValidatePattern(r.Pattern); err != nil {
			return fmt.Errorf("pattern: %w", err)
		}
	}
	return nil
}

// ValidateRuleSet validates all rules in a ruleset
func ValidateRuleSet(rs *RuleSet) error {
	if rs.Version != 1 {
		return fmt.Errorf("unsupported version: %d (expected 1)", rs.Version)
	}

	names := make(map[string]bool)
	for i, rule := range rs.Rules {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("rule[%d] %q: %w", i, rule.Name, err)
		}
		if names[rule.Name] {
			return fmt.Errorf("duplicate rule name: %s", rule.Name)
		}
		names[rule.Name] = true
	}

	return nil
}

// Syntax describes one placeholder delimiter pair recognized by the
// placeholder extractor, e.g. angle brackets around a token name.
type Syntax struct {
	Name  string // delimiter identifier: angle, double_bracket, double_brace
	Open  string
	Close string
}

// knownSyntaxes maps delimiter names to their open/close pairs.
var knownSyntaxes = map[string]Syntax{
	"angle":          {Name: "angle", Open: "<", Close: ">"},
	"double_bracket": {Name: "double_bracket", Open: "[[", Close: "]]"},
	"double_brace":   {Name: "double_brace", Open: "{{", Close: "}}"},
}

// DefaultSyntaxNames lists every delimiter the extractor understands, in the
// order they are tried on overlapping candidates.
func DefaultSyntaxNames() []string {
	return []string{"angle", "double_bracket", "double_brace"}
}

// LookupSyntax resolves a delimiter name to its Syntax.
func LookupSyntax(name string) (Syntax, error) {
	s, ok := knownSyntaxes[name]
	if !ok {
		return Syntax{}, fmt.Errorf("unknown placeholder delimiter %q", name)
	}
	return s, nil
}
