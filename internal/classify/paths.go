package classify

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ExtractPaths pulls path-like arguments out of a shell command by parsing
// it as bash and walking the AST. It returns every call argument that looks
// like a filesystem path plus the targets of output redirections.
//
// The second return value reports whether the command parsed cleanly. On a
// parse error the extraction falls back to a plain token scan, so callers
// still see path candidates for commands the parser rejects. Fragments with
// command or process substitutions are skipped since their runtime value is
// unknowable statically.
func ExtractPaths(cmd string) ([]string, bool) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return scanTokenPaths(cmd), false
	}

	var paths []string
	syntax.Walk(file, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.CmdSubst, *syntax.ProcSubst:
			// Substitution output is unknowable statically; do not treat
			// the inner command's arguments as paths of the outer one.
			return false
		case *syntax.CallExpr:
			// Skip argv[0]; the command name is not a path argument
			// even when invoked as /usr/bin/rm.
			for i, word := range n.Args {
				if i == 0 {
					continue
				}
				if wordHasSubst(word) {
					continue
				}
				if s := wordToString(word); isPathLike(s) {
					paths = append(paths, s)
				}
			}
		case *syntax.Redirect:
			switch n.Op {
			case syntax.RdrOut, syntax.AppOut, syntax.RdrAll, syntax.AppAll:
				if n.Word != nil && !wordHasSubst(n.Word) {
					if s := wordToString(n.Word); s != "" {
						paths = append(paths, s)
					}
				}
			}
		}
		return true
	})
	return paths, true
}

// wordToString reconstructs the literal text of a word, unwrapping quoting.
// Parameter expansions are kept in their $name form so the caller can see
// that the value is dynamic.
func wordToString(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		writeWordPart(&sb, part)
	}
	return sb.String()
}

func writeWordPart(sb *strings.Builder, part syntax.WordPart) {
	switch p := part.(type) {
	case *syntax.Lit:
		sb.WriteString(p.Value)
	case *syntax.SglQuoted:
		sb.WriteString(p.Value)
	case *syntax.DblQuoted:
		for _, inner := range p.Parts {
			writeWordPart(sb, inner)
		}
	case *syntax.ParamExp:
		sb.WriteByte('$')
		if p.Param != nil {
			sb.WriteString(p.Param.Value)
		}
	}
}

// wordHasSubst reports whether any part of the word is a command or
// process substitution.
func wordHasSubst(w *syntax.Word) bool {
	found := false
	syntax.Walk(w, func(node syntax.Node) bool {
		switch node.(type) {
		case *syntax.CmdSubst, *syntax.ProcSubst:
			found = true
			return false
		}
		return true
	})
	return found
}

// isPathLike reports whether an argument plausibly names a filesystem
// location. Flags are excluded; bare words with no path structure are not
// worth evaluating against path rules.
func isPathLike(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") {
		return false
	}
	if strings.Contains(s, "/") {
		return true
	}
	if s == ".." || s == "." || s == "~" {
		return true
	}
	return false
}

// scanTokenPaths is the fallback for commands the bash parser rejects.
// It splits on whitespace and keeps the path-shaped tokens, shedding
// trailing shell punctuation so "rm /tmp/x;" yields "/tmp/x".
func scanTokenPaths(cmd string) []string {
	var paths []string
	for _, tok := range strings.Fields(cmd) {
		tok = strings.Trim(tok, `"';|&()`)
		if isPathLike(tok) {
			paths = append(paths, tok)
		}
	}
	return paths
}
