package classify

import (
	"path/filepath"
	"strings"
)

// CheckTraversal examines extracted path arguments for ".." segments that
// escape the allowed root. Paths without a ".." segment are never a
// traversal violation here, even absolute ones; those are left to the
// path-glob rules, which can name sensitive locations explicitly. The root
// must be absolute.
//
// Returns the first violation found, or nil.
func CheckTraversal(paths []string, root string) *TraversalViolation {
	for _, p := range paths {
		if !hasDotDotSegment(p) {
			continue
		}
		if escapesRoot(p, root) {
			return &TraversalViolation{Path: p, Root: root}
		}
	}
	return nil
}

// hasDotDotSegment reports whether the path contains a ".." component.
// A substring check is not enough: "file..txt" is fine, "../x" is not.
func hasDotDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// escapesRoot resolves p against root and reports whether the result lands
// outside root. Relative paths are anchored at the root; absolute paths are
// cleaned in place.
func escapesRoot(p, root string) bool {
	root = filepath.Clean(root)
	var resolved string
	if filepath.IsAbs(p) {
		resolved = filepath.Clean(p)
	} else {
		resolved = filepath.Clean(filepath.Join(root, p))
	}
	if resolved == root {
		return false
	}
	// A cleaned filesystem root ("/", `C:\`) already ends in the separator.
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return !strings.HasPrefix(resolved, prefix)
}
