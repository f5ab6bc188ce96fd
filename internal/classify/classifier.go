// Package classify evaluates raw command strings against the rule
// registry and produces a verdict. The registry is a blocklist, not an
// allowlist: an unknown command is implicitly allowed, a matched block
// rule denies, and a matched warn rule allows with a reason the caller
// can surface for confirmation.
package classify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/registry"
	"github.com/ishangarg01/cmd-gen/internal/types"
)

var log = logger.New("classify")

// Verdict is the result of classifying one command.
type Verdict struct {
	// Allowed is false when a block rule or the traversal check matched.
	Allowed bool
	// Rule is the block rule that produced a deny; nil on allow.
	Rule *registry.RiskRule
	// Reason is the deny reason, or the first matching warn rule's reason
	// on an allow. Empty means a clean allow.
	Reason string
}

// Warned reports whether the command was allowed but tripped a warn rule,
// meaning the caller should ask for confirmation before proceeding.
func (v Verdict) Warned() bool {
	return v.Allowed && v.Reason != ""
}

// Classifier matches commands against a rule registry with an allowed
// root directory for traversal checks. Safe for concurrent use.
type Classifier struct {
	registry *registry.Registry
	root     string
}

// New builds a Classifier. An empty allowedRoot defaults to the current
// working directory. The root is resolved to an absolute path once, at
// construction.
func New(reg *registry.Registry, allowedRoot string) (*Classifier, error) {
	if allowedRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		allowedRoot = wd
	}
	abs, err := filepath.Abs(allowedRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving allowed root: %w", err)
	}
	return &Classifier{registry: reg, root: abs}, nil
}

// AllowedRoot returns the absolute root directory used for traversal checks.
func (c *Classifier) AllowedRoot() string {
	return c.root
}

// Classify evaluates one command. The error is non-nil only for input the
// classifier cannot evaluate at all; a dangerous command is a deny verdict,
// not an error.
//
// Evaluation order is fixed. The traversal check runs first and
// unconditionally. Then rules are tried in registration order: the first
// block match denies immediately, the first warn match is remembered and
// reported on the final allow.
func (c *Classifier) Classify(command string) (Verdict, error) {
	normalized := NormalizeCommand(command)
	if normalized == "" {
		return Verdict{}, &ClassificationError{Reason: "empty command"}
	}

	paths, parsed := ExtractPaths(normalized)
	if !parsed {
		log.Debug("shell parse failed, using token scan for paths: %q", normalized)
	}

	// SECURITY: traversal protection is independent of the rule set and
	// cannot be disabled by configuration.
	if v := CheckTraversal(paths, c.root); v != nil {
		rule := traversalRule(v)
		log.Info("denied (traversal): %s", v.Error())
		return Verdict{Allowed: false, Rule: &rule, Reason: rule.Reason}, nil
	}

	candidates := pathCandidates(paths, c.root)

	var warnReason string
	rules := c.registry.AllRules()
	for i := range rules {
		cr := &rules[i]
		matched := cr.MatchCommand(normalized)
		if !matched {
			_, matched = cr.MatchPaths(candidates)
		}
		if !matched {
			continue
		}
		if cr.Rule.Severity.IsBlock() {
			log.Info("denied by rule %s: %s", cr.Rule.Name, cr.Rule.Reason)
			rule := cr.Rule
			return Verdict{Allowed: false, Rule: &rule, Reason: rule.Reason}, nil
		}
		if warnReason == "" {
			log.Debug("warn rule %s matched: %s", cr.Rule.Name, cr.Rule.Reason)
			warnReason = cr.Rule.Reason
		}
	}

	return Verdict{Allowed: true, Reason: warnReason}, nil
}

// traversalRule builds the synthetic rule a traversal deny is attributed
// to, so the verdict shape is uniform for callers and history records.
func traversalRule(v *TraversalViolation) registry.RiskRule {
	return registry.RiskRule{
		Name:     "path-traversal",
		Severity: types.SeverityBlock,
		Reason:   v.Error(),
		Source:   registry.SourceBuiltin,
	}
}

// pathCandidates expands each extracted path into the forms path-glob
// rules are matched against: the cleaned literal, and for relative paths
// also the resolution against the allowed root. "etc/shadow" typed from /
// should hit the same rule as "/etc/shadow".
func pathCandidates(paths []string, root string) []string {
	var out []string
	for _, p := range paths {
		cleaned := filepath.Clean(p)
		out = append(out, cleaned)
		if !filepath.IsAbs(cleaned) {
			out = append(out, filepath.Clean(filepath.Join(root, cleaned)))
		}
	}
	return out
}
