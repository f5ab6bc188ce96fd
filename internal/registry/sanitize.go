package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxPatternLength caps rule regex length. Rules come from user-editable
// YAML; an absurdly long pattern is either a mistake or an attack on the
// compiler.
const MaxPatternLength = 512

// ValidatePattern checks a rule regex before it is admitted to the registry.
// It rejects patterns that fail to compile, exceed the length cap, or match
// the empty string — a BLOCK rule matching everything would deny every
// command, and a WARN rule matching everything would nag on every audit.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return errors.New("pattern is empty")
	}
	if len(pattern) > MaxPatternLength {
		return fmt.Errorf("pattern exceeds %d characters", MaxPatternLength)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}

	if re.MatchString("") {
		return errors.New("pattern matches the empty string")
	}

	return nil
}

// compilePattern validates and compiles a rule pattern in one step.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(pattern)
}
