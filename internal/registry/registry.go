// Package registry holds the static risk-rule and placeholder-syntax
// knowledge consumed by the classifier and the placeholder extractor.
// The registry is loaded once at startup and is read-only thereafter,
// except for hot reload of the user rules directory, which swaps the
// merged rule slice under a write lock.
package registry

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gobwas/glob"

	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/types"
)

var log = logger.New("registry")

// CompiledRule is a risk rule with its pattern and path globs pre-compiled.
// Compilation happens at load time so classification never re-compiles or
// sees an invalid pattern.
type CompiledRule struct {
	Rule  RiskRule
	Regex *regexp.Regexp // non-nil if Rule.Pattern is set
	Globs []glob.Glob    // one per Rule.Paths entry
}

// MatchCommand reports whether the rule's regex matches the normalized
// command text.
func (c *CompiledRule) MatchCommand(cmd string) bool {
	return c.Regex != nil && c.Regex.MatchString(cmd)
}

// MatchPaths reports whether any extracted path argument matches one of
// the rule's path globs, returning the first matching path.
func (c *CompiledRule) MatchPaths(paths []string) (string, bool) {
	for _, p := range paths {
		for _, g := range c.Globs {
			if g.Match(p) {
				return p, true
			}
		}
	}
	return "", false
}

// Options configures Registry construction: extra rules appended after the
// builtin and user sets, and the placeholder delimiter selection. The
// allowed root for traversal checks belongs to the classifier, not here.
type Options struct {
	UserDir        string
	DisableBuiltin bool
	ExtraBlock     []RiskRule // appended after builtin and user rules
	ExtraWarn      []RiskRule
	Delimiters     []string // placeholder syntax names; empty means all
}

// Registry is the ordered, process-wide rule and placeholder-syntax store.
// Safe for concurrent reads; ReloadUserRules is the only writer.
type Registry struct {
	mu sync.RWMutex

	builtin []CompiledRule // immutable after New
	user    []CompiledRule // swapped on reload
	extra   []CompiledRule // immutable after New

	merged []CompiledRule // builtin + user + extra, registration order

	syntaxes []Syntax
	loader   *Loader
}

// New creates a Registry from the given options. Builtin rules load from
// the embedded filesystem, user rules from opts.UserDir, extra rules from
// the options themselves, in that registration order.
func New(opts Options) (*Registry, error) {
	r := &Registry{
		loader: NewLoader(opts.UserDir),
	}

	names := opts.Delimiters
	if len(names) == 0 {
		names = DefaultSyntaxNames()
	}
	for _, n := range names {
		s, err := LookupSyntax(n)
		if err != nil {
			return nil, err
		}
		r.syntaxes = append(r.syntaxes, s)
	}

	if !opts.DisableBuiltin {
		rules, err := r.loader.LoadBuiltin()
		if err != nil {
			return nil, err
		}
		compiled, err := compileRules(rules)
		if err != nil {
			return nil, err
		}
		r.builtin = compiled
	} else {
		log.Warn("Builtin risk rules disabled")
	}

	// Normalize on a copy; the Options slices stay caller-owned.
	extraRules := append(append([]RiskRule{}, opts.ExtraBlock...), opts.ExtraWarn...)
	for i := range extraRules {
		if i < len(opts.ExtraBlock) {
			extraRules[i].Severity = types.SeverityBlock
		} else {
			extraRules[i].Severity = types.SeverityWarn
		}
		extraRules[i].Source = SourceConfig
	}
	for i, er := range extraRules {
		if er.Reason == "" {
			extraRules[i].Reason = fmt.Sprintf("matched configured rule %q", er.Name)
		}
		if err := extraRules[i].Validate(); err != nil {
			return nil, fmt.Errorf("extra rule %q: %w", er.Name, err)
		}
	}
	compiled, err := compileRules(extraRules)
	if err != nil {
		return nil, err
	}
	r.extra = compiled

	if err := r.ReloadUserRules(); err != nil {
		log.Warn("Failed to load user rules: %v", err)
	}

	log.Info("Registry ready: %d rules (%d builtin, %d user, %d config)",
		r.RuleCount(), len(r.builtin), len(r.user), len(r.extra))
	return r, nil
}

// compileRules compiles a validated rule list.
func compileRules(rules []RiskRule) ([]CompiledRule, error) {
	compiled := make([]CompiledRule, 0, len(rules))
	for _, rule := range rules {
		cr := CompiledRule{Rule: rule}
		if rule.Pattern != "" {
			re, err := compilePattern(rule.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
			}
			cr.Regex = re
		}
		for _, p := range rule.Paths {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, fmt.Errorf("rule %q: invalid path glob %q: %w", rule.Name, p, err)
			}
			cr.Globs = append(cr.Globs, g)
		}
		compiled = append(compiled, cr)
	}
	return compiled, nil
}

// rebuildMerged rebuilds the merged slice. Caller must hold the write lock.
func (r *Registry) rebuildMerged() {
	merged := make([]CompiledRule, 0, len(r.builtin)+len(r.user)+len(r.extra))
	merged = append(merged, r.builtin...)
	merged = append(merged, r.user...)
	merged = append(merged, r.extra...)
	r.merged = merged
}

// ReloadUserRules reloads rules from the user rules directory. Builtin and
// config rules are untouched. On parse failure of the whole directory the
// previous user rules stay in effect.
func (r *Registry) ReloadUserRules() error {
	rules, err := r.loader.LoadUser()
	if err != nil {
		return err
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.user = compiled
	r.rebuildMerged()
	log.Debug("Reloaded %d user rules", len(compiled))
	return nil
}

// AllRules returns the full registration-ordered rule sequence. The
// returned slice is a snapshot safe to iterate without holding the lock.
func (r *Registry) AllRules() []CompiledRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CompiledRule, len(r.merged))
	copy(out, r.merged)
	return out
}

// Rules returns the raw rule metadata, registration-ordered.
func (r *Registry) Rules() []RiskRule {
	compiled := r.AllRules()
	out := make([]RiskRule, len(compiled))
	for i, c := range compiled {
		out[i] = c.Rule
	}
	return out
}

// RuleCount returns the number of active rules
func (r *Registry) RuleCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.merged)
}

// PlaceholderSyntaxes returns the registered placeholder delimiter set.
func (r *Registry) PlaceholderSyntaxes() []Syntax {
	out := make([]Syntax, len(r.syntaxes))
	copy(out, r.syntaxes)
	return out
}

// GetLoader returns the rule loader
func (r *Registry) GetLoader() *Loader {
	return r.loader
}
