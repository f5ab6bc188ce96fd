package tui

// Icons — each symbol is unique and lives in a widely-supported Unicode
// block. Color is the primary signal; icon shape reinforces meaning.
const (
	IconCheck   = "✔" // ✔ — heavy check mark (allowed)
	IconCross   = "✖" // ✖ — heavy multiplication X (denied)
	IconWarning = "⚠" // ⚠ — warning sign (confirmation required)
	IconInfo    = "ℹ" // ℹ — information source
	IconBlock   = "⊘" // ⊘ — circled division slash (blocked)
	IconPrompt  = "▸" // ▸ — small right triangle (placeholder prompt)
	IconSquare  = "▪" // ▪ — small square (severity badge)
)
