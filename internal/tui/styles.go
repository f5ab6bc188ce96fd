package tui

import (
	"os"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/ishangarg01/cmd-gen/internal/tui/terminal"
)

// plainMode disables all TUI styling: no colors, no icons, no interactive
// widgets. When enabled, output is clean plain text suitable for CI/CD,
// piped output, or --no-color.
var (
	plainMode bool
	plainOnce sync.Once
	plainMu   sync.RWMutex
)

// initPlainMode auto-detects plain mode from environment on first call.
// Precedence: NO_COLOR > TTY detection > terminal capability detection.
func initPlainMode() {
	plainOnce.Do(func() {
		// NO_COLOR wins — https://no-color.org
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			plainMode = true
			return
		}
		// Not a terminal (piped, redirected, daemon) → plain mode
		if !term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // Fd() fits in int on all supported platforms
			plainMode = true
			return
		}
		// Unknown terminal with no detected capabilities → plain mode
		if terminal.Detect().Caps == terminal.CapNone {
			plainMode = true
		}
	})
}

// SetPlainMode explicitly enables or disables plain mode.
// Call this early (e.g. when parsing --no-color flag) before any TUI output.
func SetPlainMode(plain bool) {
	plainMu.Lock()
	defer plainMu.Unlock()
	plainMode = plain
	// Mark as initialized so auto-detect doesn't override
	plainOnce.Do(func() {})
}

// IsPlainMode returns true if TUI styling is disabled.
func IsPlainMode() bool {
	initPlainMode()
	plainMu.RLock()
	defer plainMu.RUnlock()
	return plainMode
}

// Color palette — cool slate and sky tones. Adapts to OS theme.
var (
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#1D4FB5", Dark: "#6CA8F5"} // Sky Blue
	ColorAccent  = lipgloss.AdaptiveColor{Light: "#14698B", Dark: "#74C7EC"} // Teal
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#3A7A5F", Dark: "#45B58A"} // Mint
	ColorError   = lipgloss.AdaptiveColor{Light: "#B52A38", Dark: "#E05A65"} // Coral
	ColorWarning = lipgloss.AdaptiveColor{Light: "#8B6914", Dark: "#F0C674"} // Amber
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#8E99A8"} // Slate
)

// Reusable styles.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorAccent)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold    = lipgloss.NewStyle().Bold(true)
	StyleCommand = lipgloss.NewStyle().Foreground(ColorPrimary)

	// Branded prefix: [cmd-gen] (unexported — use Prefix() instead)
	stylePrefix = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)

	// Severity badge styles
	StyleBlockBadge = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarnBadge  = lipgloss.NewStyle().Foreground(ColorWarning)
)

// Prefix returns the branded [cmd-gen] prefix string.
func Prefix() string {
	if IsPlainMode() {
		return "[cmd-gen]"
	}
	return stylePrefix.Render("[cmd-gen]")
}

// SeverityStyle returns the style for a rule severity.
func SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "block":
		return StyleBlockBadge
	case "warn":
		return StyleWarnBadge
	default:
		return StyleMuted
	}
}

// SeverityBadge returns a styled severity badge like "■ BLOCK".
func SeverityBadge(severity string) string {
	label := severityLabel(severity)
	if IsPlainMode() {
		return "[" + label + "]"
	}
	return SeverityStyle(severity).Render(IconSquare + " " + label)
}

func severityLabel(severity string) string {
	switch severity {
	case "block":
		return "BLOCK"
	case "warn":
		return "WARN"
	default:
		return severity
	}
}

// Separator returns a section separator bar, optionally titled.
func Separator(title string) string {
	if IsPlainMode() {
		if title == "" {
			return "---"
		}
		return "--- " + title + " ---"
	}
	bar := StyleMuted.Render("━━━━━━━━━━━━")
	if title == "" {
		return bar
	}
	return StyleInfo.Render("▸ ") + StyleBold.Render(title) + " " + bar
}

// FormTheme returns the huh theme used by every interactive prompt,
// matching the palette above.
func FormTheme() *huh.Theme {
	t := huh.ThemeBase()
	t.Focused.Base = t.Focused.Base.BorderForeground(ColorPrimary)
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorError)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorError)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Background(ColorPrimary)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorAccent)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(ColorAccent)
	t.Blurred = t.Focused
	return t
}

// hasCapability reports whether the current terminal supports the given
// capability. Always returns false in plain mode (no styled output).
func hasCapability(c terminal.Capability) bool {
	if IsPlainMode() {
		return false
	}
	return terminal.Detect().Caps.Has(c)
}

// Hyperlink wraps text in an OSC 8 clickable link if the terminal supports it.
// Falls back to plain text when unsupported or in plain mode.
func Hyperlink(url, text string) string {
	if url == "" || !hasCapability(terminal.CapHyperlinks) {
		return text
	}
	return termenv.Hyperlink(url, text)
}

// WindowTitle sets the terminal window title via OSC 2.
// No-op if the terminal doesn't support it or in plain mode.
// Not goroutine-safe — call only from the main goroutine.
func WindowTitle(title string) {
	if !hasCapability(terminal.CapWindowTitle) {
		return
	}
	termenv.DefaultOutput().SetWindowTitle(title)
}

var styleFaint = lipgloss.NewStyle().Faint(true)

// Faint returns text with faint/dim formatting if supported.
func Faint(text string) string {
	if !hasCapability(terminal.CapFaint) {
		return text
	}
	return styleFaint.Render(text)
}
