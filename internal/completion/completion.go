// Package completion provides CLI tab-completion for cmd-gen.
//
// The binary itself handles completions: when invoked with COMP_LINE set
// (by the shell), it outputs matching completions and exits.
// Works across bash, zsh, and fish with a one-time install.
//
// This package has no TUI dependency — it compiles in both normal and notui
// builds. User-facing output is handled by the caller in main.go.
package completion

import (
	"os"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/install"
	"github.com/posener/complete/v2/predict"
)

// command defines the full cmd-gen CLI completion tree.
var command = &complete.Command{
	Sub: map[string]*complete.Command{
		"audit": {
			Flags: map[string]complete.Predictor{
				"config":          predict.Files("*.yaml"),
				"root":            predict.Dirs("*"),
				"timeout":         predict.Nothing,
				"log-level":       predict.Set{"debug", "info", "warn", "error"},
				"no-color":        predict.Nothing,
				"disable-builtin": predict.Nothing,
				"request":         predict.Nothing,
			},
		},
		"serve": {
			Flags: map[string]complete.Predictor{
				"config":    predict.Files("*.yaml"),
				"port":      predict.Nothing,
				"watch":     predict.Nothing,
				"log-level": predict.Set{"debug", "info", "warn", "error"},
				"no-color":  predict.Nothing,
			},
		},
		"list-rules": {Flags: map[string]complete.Predictor{
			"config":      predict.Files("*.yaml"),
			"no-color":    predict.Nothing,
			"json":        predict.Nothing,
			"interactive": predict.Nothing,
		}},
		"add-rule":       {Args: predict.Files("*.yaml"), Flags: map[string]complete.Predictor{"name": predict.Nothing}},
		"remove-rule":    {Args: predict.Something},
		"reload-rules":   {},
		"validate-rules": {Args: predict.Files("*.yaml")},
		"history": {
			Flags: map[string]complete.Predictor{
				"limit":  predict.Nothing,
				"denied": predict.Nothing,
				"json":   predict.Nothing,
			},
		},
		"export-history": {
			Flags: map[string]complete.Predictor{
				"output":   predict.Files("*"),
				"compress": predict.Nothing,
			},
		},
		"completion": {Flags: map[string]complete.Predictor{"install": predict.Nothing, "uninstall": predict.Nothing}},
		"version":    {},
		"help":       {},
	},
}

// Run checks if the binary was invoked for shell completion.
// If COMP_LINE is set, it outputs completions and exits (never returns).
// Otherwise it returns false and the program continues normally.
func Run() bool {
	if os.Getenv("COMP_LINE") != "" || os.Getenv("COMP_INSTALL") != "" || os.Getenv("COMP_UNINSTALL") != "" {
		command.Complete("cmd-gen")
		return true
	}
	return false
}

// Install sets up shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Install() error {
	return install.Install("cmd-gen")
}

// Uninstall removes shell completion for the detected shells.
// Returns nil on success. The caller handles user-facing output.
func Uninstall() error {
	return install.Uninstall("cmd-gen")
}

// IsInstalled reports whether shell completion is already set up.
func IsInstalled() bool {
	return install.IsInstalled("cmd-gen")
}
