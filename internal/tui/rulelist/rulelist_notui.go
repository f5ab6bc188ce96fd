//go:build notui

package rulelist

import (
	"github.com/ishangarg01/cmd-gen/internal/registry"
)

// Render displays rules as plain text (no interactivity in notui build).
func Render(rules []registry.RiskRule, total int) error {
	return RenderPlain(rules, total)
}
