package registry

import (
	"strings"
	"testing"

	"github.com/ishangarg01/cmd-gen/internal/types"
)

func TestRiskRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    RiskRule
		wantErr string
	}{
		{
			name: "valid pattern rule",
			rule: RiskRule{Name: "r", Pattern: `\bsudo\b`, Severity: types.SeverityBlock, Reason: "x"},
		},
		{
			name: "valid paths rule",
			rule: RiskRule{Name: "r", Paths: []string{"/etc/**"}, Severity: types.SeverityWarn, Reason: "x"},
		},
		{
			name:    "missing name",
			rule:    RiskRule{Pattern: "x", Severity: types.SeverityBlock, Reason: "x"},
			wantErr: "name is required",
		},
		{
			name:    "missing reason",
			rule:    RiskRule{Name: "r", Pattern: "x", Severity: types.SeverityBlock},
			wantErr: "reason is required",
		},
		{
			name:    "bad severity",
			rule:    RiskRule{Name: "r", Pattern: "x", Severity: "critical", Reason: "x"},
			wantErr: "invalid severity",
		},
		{
			name:    "no pattern or paths",
			rule:    RiskRule{Name: "r", Severity: types.SeverityBlock, Reason: "x"},
			wantErr: "pattern or paths is required",
		},
		{
			name:    "bad regex",
			rule:    RiskRule{Name: "r", Pattern: "[unclosed", Severity: types.SeverityBlock, Reason: "x"},
			wantErr: "invalid regex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRuleSet(t *testing.T) {
	good := RiskRule{Name: "a", Pattern: "x+", Severity: types.SeverityBlock, Reason: "r"}

	rs := &RuleSet{Version: 1, Rules: []RiskRule{good}}
	if err := ValidateRuleSet(rs); err != nil {
		t.Errorf("valid ruleset rejected: %v", err)
	}

	rs = &RuleSet{Version: 2, Rules: []RiskRule{good}}
	if err := ValidateRuleSet(rs); err == nil {
		t.Error("expected error for unsupported version")
	}

	dup := good
	rs = &RuleSet{Version: 1, Rules: []RiskRule{good, dup}}
	if err := ValidateRuleSet(rs); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate name error, got %v", err)
	}
}

func TestLookupSyntax(t *testing.T) {
	tests := []struct {
		name      string
		wantOpen  string
		wantClose string
		wantErr   bool
	}{
		{"angle", "<", ">", false},
		{"double_bracket", "[[", "]]", false},
		{"double_brace", "{{", "}}", false},
		{"curly", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		s, err := LookupSyntax(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("LookupSyntax(%q) should fail", tt.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("LookupSyntax(%q) error: %v", tt.name, err)
			continue
		}
		if s.Open != tt.wantOpen || s.Close != tt.wantClose {
			t.Errorf("LookupSyntax(%q) = %q/%q, want %q/%q", tt.name, s.Open, s.Close, tt.wantOpen, tt.wantClose)
		}
	}
}
