// Package terminal detects emulator capabilities from the environment so
// styled output degrades gracefully on terminals that cannot render it.
package terminal

import (
	"os"
	"strings"
	"sync"
)

// Capability is a bitfield representing terminal features.
type Capability uint8

const (
	CapTruecolor   Capability = 1 << iota // 24-bit color
	CapHyperlinks                         // OSC 8 clickable links
	CapFaint                              // ANSI faint/dim attribute
	CapWindowTitle                        // OSC 0/2 title setting
)

// Composite capability sets.
const (
	CapNone Capability = 0
	CapAll  Capability = CapTruecolor | CapHyperlinks | CapFaint | CapWindowTitle
)

// Has reports whether the capability set includes all bits in v.
func (c Capability) Has(v Capability) bool {
	return c&v == v
}

// Without returns the set with v removed.
func (c Capability) Without(v Capability) Capability {
	return c &^ v
}

// Info holds detected terminal capabilities.
type Info struct {
	Caps        Capability // detected feature set
	Multiplexed bool       // true if running inside tmux/screen
}

// EnvFunc is the signature for environment variable lookup (matches os.Getenv).
type EnvFunc func(string) string

var (
	cachedInfo Info
	detectOnce sync.Once
)

// Detect identifies terminal capabilities from os.Getenv.
// Result is cached after first call.
func Detect() Info {
	detectOnce.Do(func() {
		cachedInfo = DetectWith(os.Getenv)
	})
	return cachedInfo
}

// Capability profiles for terminals with reduced feature sets.
var (
	// 256-color only, no OSC 8 hyperlinks
	capsLimited = CapFaint | CapWindowTitle
	// All features except hyperlinks
	capsNoLinks = CapAll.Without(CapHyperlinks)
)

// DetectWith identifies terminal capabilities using a custom env lookup.
// Not cached — used for testing.
func DetectWith(getenv EnvFunc) Info {
	info := Info{}

	if getenv("TMUX") != "" || getenv("STY") != "" {
		info.Multiplexed = true
	}

	// Map environment variables to capabilities.
	// Order: most-specific env vars first to avoid false matches.
	switch {
	case getenv("WT_SESSION") != "",
		getenv("KITTY_WINDOW_ID") != "",
		getenv("ALACRITTY_LOG") != "",
		getenv("WEZTERM_EXECUTABLE") != "":
		info.Caps = CapAll
	case getenv("KONSOLE_VERSION") != "":
		info.Caps = capsNoLinks
	default:
		switch getenv("TERM_PROGRAM") {
		case "vscode", "iTerm.app":
			info.Caps = CapAll
		case "Apple_Terminal":
			info.Caps = capsLimited
		default:
			term := getenv("TERM")
			switch {
			case term == "foot" || strings.HasPrefix(term, "foot-"):
				info.Caps = CapAll
			case getenv("VTE_VERSION") != "":
				// VTE-based terminals (GNOME Terminal variants)
				info.Caps = CapAll
			}
		}
	}

	// Unrecognized terminal: check COLORTERM for truecolor
	if info.Caps == CapNone {
		ct := getenv("COLORTERM")
		if ct == "truecolor" || ct == "24bit" {
			info.Caps = CapTruecolor
		}
	}

	return info
}
