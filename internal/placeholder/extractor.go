// Package placeholder locates unfilled parameters in a command string.
// A placeholder is a delimited token the model left for the user to
// supply, such as <project_name> or [[branch]], optionally carrying a
// default after a colon: <port:8080>.
package placeholder

import (
	"regexp"
	"sort"

	"github.com/ishangarg01/cmd-gen/internal/registry"
)

// Placeholder is one located span within a command string. Start and End
// are byte offsets into the source string and include the delimiters, so
// replacing command[Start:End] with a value removes the delimiters too.
type Placeholder struct {
	Start       int
	End         int
	Name        string
	DefaultHint string // empty when the placeholder has no default
	Syntax      string // delimiter name that produced the match
}

// Extractor scans commands for every registered delimiter syntax.
// Immutable after construction; safe for concurrent use.
type Extractor struct {
	syntaxes []compiledSyntax
}

type compiledSyntax struct {
	name string
	re   *regexp.Regexp
}

// nameExpr constrains placeholder names to identifier-like tokens so that
// shell redirections ("wc -l < file > out") and comparisons never read as
// placeholders. The optional default after the colon may be any text free
// of delimiter characters.
const nameExpr = `([A-Za-z_][A-Za-z0-9_-]*)(?::([^<>\[\]{}]+))?`

// NewExtractor builds an Extractor for the given delimiter syntaxes,
// normally Registry.PlaceholderSyntaxes().
func NewExtractor(syntaxes []registry.Syntax) *Extractor {
	e := &Extractor{}
	for _, s := range syntaxes {
		re := regexp.MustCompile(regexp.QuoteMeta(s.Open) + nameExpr + regexp.QuoteMeta(s.Close))
		e.syntaxes = append(e.syntaxes, compiledSyntax{name: s.Name, re: re})
	}
	return e
}

// Extract returns every placeholder in the command, ordered by first
// appearance. Overlapping candidates resolve earliest-start-then-longest;
// a candidate nested inside an accepted span is dropped. A command with no
// placeholders yields an empty sequence, not an error.
func (e *Extractor) Extract(command string) []Placeholder {
	var candidates []Placeholder
	for _, s := range e.syntaxes {
		for _, m := range s.re.FindAllStringSubmatchIndex(command, -1) {
			p := Placeholder{
				Start:  m[0],
				End:    m[1],
				Name:   command[m[2]:m[3]],
				Syntax: s.name,
			}
			if m[4] >= 0 {
				p.DefaultHint = command[m[4]:m[5]]
			}
			candidates = append(candidates, p)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Start != candidates[j].Start {
			return candidates[i].Start < candidates[j].Start
		}
		return candidates[i].End > candidates[j].End
	})

	result := make([]Placeholder, 0, len(candidates))
	lastEnd := 0
	for _, c := range candidates {
		if c.Start < lastEnd {
			continue
		}
		result = append(result, c)
		lastEnd = c.End
	}
	return result
}
