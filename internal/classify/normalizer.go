package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeCommand prepares a raw command string for rule matching.
// Casing of arguments is left alone — shell tokens are case-sensitive —
// but encoding tricks that would let a command slip past pattern matching
// are flattened out:
//
//  1. Null bytes stripped — C-level syscalls truncate at \x00, so
//     "rm\x00x -rf /" could execute differently than it matches.
//  2. Invalid UTF-8 replaced before NFKC, which otherwise corrupts
//     processing of the following runes.
//  3. NFKC normalization — maps fullwidth and compatibility forms to
//     canonical equivalents ("ｒｍ" → "rm").
//  4. Invisible formatting runes stripped — zero-width joiners and
//     friends are invisible in a terminal but defeat substring matching.
//  5. Runs of whitespace collapsed to single spaces and the ends trimmed,
//     so "rm   -rf   /" matches the same rules as "rm -rf /".
func NormalizeCommand(cmd string) string {
	cmd = strings.ReplaceAll(cmd, "\x00", "")
	cmd = strings.ToValidUTF8(cmd, "�")
	cmd = norm.NFKC.String(cmd)
	cmd = stripInvisible(cmd)
	cmd = collapseWhitespace(cmd)
	return strings.TrimSpace(cmd)
}

// invisibleRunes are zero-width and formatting characters that render as
// nothing but break pattern matching.
var invisibleRunes = map[rune]bool{
	'\u200B': true, // zero width space
	'\u200C': true, // zero width non-joiner
	'\u200D': true, // zero width joiner
	'\u200E': true, // left-to-right mark
	'\u200F': true, // right-to-left mark
	'\u2060': true, // word joiner
	'\u00AD': true, // soft hyphen
	'\uFEFF': true, // BOM / zero width no-break space
}

func stripInvisible(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if invisibleRunes[r] || unicode.Is(unicode.Cf, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func collapseWhitespace(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			inSpace = true
			continue
		}
		if inSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		inSpace = false
		sb.WriteRune(r)
	}
	return sb.String()
}
