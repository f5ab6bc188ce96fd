package rulelist

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ishangarg01/cmd-gen/internal/registry"
)

// RenderPlain displays rules as plain text (no interactivity).
func RenderPlain(rules []registry.RiskRule, total int) error {
	fmt.Printf("Risk Rules (%d total)\n\n", total)

	builtin, userByFile := groupBySource(rules)

	if len(builtin) > 0 {
		fmt.Println("--- Builtin Rules ---")
		fmt.Println()
		for _, r := range builtin {
			PrintRule(r, "  ")
			fmt.Println()
		}
	}

	fmt.Println("--- User Rules ---")
	if len(userByFile) == 0 {
		fmt.Println("  (none)")
		fmt.Println("  Add rules with: cmd-gen add-rule <file.yaml>")
	} else {
		filenames := make([]string, 0, len(userByFile))
		for f := range userByFile {
			filenames = append(filenames, f)
		}
		sort.Strings(filenames)
		for _, filename := range filenames {
			fmt.Printf("\n  [%s]\n", filename)
			for _, r := range userByFile[filename] {
				PrintRule(r, "    ")
			}
		}
	}
	fmt.Println()
	return nil
}

// PrintRule prints a single rule in plain text format.
func PrintRule(r registry.RiskRule, prefix string) {
	fmt.Printf("%s[%s] %s\n", prefix, strings.ToUpper(string(r.Severity)), r.Name)
	if r.Reason != "" {
		fmt.Printf("%s  %s\n", prefix, r.Reason)
	}
	fmt.Printf("%s  pattern: %s\n", prefix, r.Pattern)
	if len(r.Paths) > 0 {
		fmt.Printf("%s  paths: %s\n", prefix, strings.Join(r.Paths, ", "))
	}
}

// groupBySource splits rules into builtin rules and user rules keyed by
// source filename.
func groupBySource(rules []registry.RiskRule) ([]registry.RiskRule, map[string][]registry.RiskRule) {
	var builtin []registry.RiskRule
	userByFile := make(map[string][]registry.RiskRule)
	for _, r := range rules {
		if r.Source == registry.SourceBuiltin {
			builtin = append(builtin, r)
			continue
		}
		filename := filepath.Base(r.FilePath)
		if filename == "" || filename == "." {
			filename = "(unknown)"
		}
		userByFile[filename] = append(userByFile[filename], r)
	}
	return builtin, userByFile
}
