package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ishangarg01/cmd-gen/internal/types"
)

func TestNew_Defaults(t *testing.T) {
	r, err := New(Options{UserDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if r.RuleCount() == 0 {
		t.Error("default registry should carry builtin rules")
	}
	if got := len(r.PlaceholderSyntaxes()); got != 3 {
		t.Errorf("default syntaxes = %d, want 3", got)
	}
}

func TestNew_DisableBuiltin(t *testing.T) {
	r, err := New(Options{UserDir: t.TempDir(), DisableBuiltin: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if r.RuleCount() != 0 {
		t.Errorf("rule count = %d, want 0 with builtin disabled and no user rules", r.RuleCount())
	}
}

func TestNew_BadDelimiter(t *testing.T) {
	if _, err := New(Options{Delimiters: []string{"angle", "nope"}}); err == nil {
		t.Error("expected error for unknown delimiter")
	}
}

func TestNew_ExtraRules(t *testing.T) {
	r, err := New(Options{
		UserDir:        t.TempDir(),
		DisableBuiltin: true,
		ExtraBlock:     []RiskRule{{Name: "no-shutdown", Pattern: `\bshutdown\b`, Reason: "halts the machine"}},
		ExtraWarn:      []RiskRule{{Name: "chatty", Pattern: `curl\s+-v`}},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	rules := r.Rules()
	if len(rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rules))
	}
	// Severity is forced by which option list the rule came from.
	if rules[0].Name != "no-shutdown" || rules[0].Severity != types.SeverityBlock {
		t.Errorf("rule[0] = %+v, want block no-shutdown", rules[0])
	}
	if rules[1].Severity != types.SeverityWarn || rules[1].Source != SourceConfig {
		t.Errorf("rule[1] = %+v, want warn config rule", rules[1])
	}
	if rules[1].Reason == "" {
		t.Error("missing reason should be defaulted, not empty")
	}
}

func TestNew_ExtraRulesCallerSlicesUntouched(t *testing.T) {
	extraBlock := []RiskRule{{Name: "no-shutdown", Pattern: `\bshutdown\b`, Reason: "halts the machine"}}
	extraWarn := []RiskRule{{Name: "chatty", Pattern: `curl\s+-v`, Reason: "verbose"}}
	_, err := New(Options{
		UserDir:        t.TempDir(),
		DisableBuiltin: true,
		ExtraBlock:     extraBlock,
		ExtraWarn:      extraWarn,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	// Normalization happens on a copy.
	if extraBlock[0].Severity != "" || extraBlock[0].Source != "" {
		t.Errorf("ExtraBlock[0] mutated: %+v", extraBlock[0])
	}
	if extraWarn[0].Severity != "" || extraWarn[0].Source != "" {
		t.Errorf("ExtraWarn[0] mutated: %+v", extraWarn[0])
	}
}

func TestNew_ExtraRuleInvalidPattern(t *testing.T) {
	_, err := New(Options{
		DisableBuiltin: true,
		ExtraBlock:     []RiskRule{{Name: "bad", Pattern: "[unclosed", Reason: "x"}},
	})
	if err == nil {
		t.Error("expected error for invalid extra rule pattern")
	}
}

func TestRegistrationOrder(t *testing.T) {
	dir := t.TempDir()
	userRule := `
version: 1
rules:
  - name: user-rule
    pattern: 'zzz-user'
    severity: block
    reason: "user"
`
	if err := os.WriteFile(filepath.Join(dir, "u.yaml"), []byte(userRule), 0600); err != nil {
		t.Fatal(err)
	}

	r, err := New(Options{
		UserDir:   dir,
		ExtraWarn: []RiskRule{{Name: "config-rule", Pattern: "zzz-config", Reason: "cfg"}},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	rules := r.Rules()
	// builtin first, then user, then config
	if rules[0].Source != SourceBuiltin {
		t.Errorf("first rule source = %q, want builtin", rules[0].Source)
	}
	var sawUser bool
	for _, rule := range rules {
		if rule.Source == SourceUser {
			sawUser = true
		}
		if rule.Source == SourceConfig && !sawUser {
			t.Error("config rules must register after user rules")
		}
	}
	if !sawUser {
		t.Error("user rule missing from merged set")
	}
}

func TestReloadUserRules(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{UserDir: dir, DisableBuiltin: true})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if r.RuleCount() != 0 {
		t.Fatalf("rule count = %d, want 0", r.RuleCount())
	}

	rule := `
version: 1
rules:
  - name: late-rule
    pattern: 'zzz'
    severity: warn
    reason: "added later"
`
	if err := os.WriteFile(filepath.Join(dir, "late.yaml"), []byte(rule), 0600); err != nil {
		t.Fatal(err)
	}
	if err := r.ReloadUserRules(); err != nil {
		t.Fatalf("ReloadUserRules() error: %v", err)
	}
	if r.RuleCount() != 1 {
		t.Errorf("rule count after reload = %d, want 1", r.RuleCount())
	}
}

func TestCompiledRuleMatchers(t *testing.T) {
	r, err := New(Options{
		DisableBuiltin: true,
		ExtraBlock: []RiskRule{
			{Name: "re", Pattern: `\bsudo\b`, Reason: "x"},
			{Name: "glob", Paths: []string{"/etc/**"}, Reason: "y"},
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	rules := r.AllRules()
	if !rules[0].MatchCommand("sudo ls") {
		t.Error("regex rule should match 'sudo ls'")
	}
	if rules[0].MatchCommand("visudoku") {
		t.Error("regex rule should respect word boundaries")
	}
	if p, ok := rules[1].MatchPaths([]string{"/tmp/x", "/etc/shadow"}); !ok || p != "/etc/shadow" {
		t.Errorf("glob rule match = %q, %v; want /etc/shadow, true", p, ok)
	}
	if _, ok := rules[1].MatchPaths([]string{"/home/user/etc"}); ok {
		t.Error("glob rule should not match relative lookalike")
	}
}

// Snapshot iteration must be safe against concurrent reloads.
func TestConcurrentReadsDuringReload(t *testing.T) {
	dir := t.TempDir()
	r, err := New(Options{UserDir: dir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				for range r.AllRules() {
				}
				_ = r.RuleCount()
			}
		}()
	}
	for i := 0; i < 20; i++ {
		if err := r.ReloadUserRules(); err != nil {
			t.Errorf("reload error: %v", err)
		}
	}
	wg.Wait()
}
