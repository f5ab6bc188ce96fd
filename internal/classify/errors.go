package classify

import "fmt"

// ClassificationError indicates the classifier was handed input it cannot
// evaluate, such as a command that is empty after normalization. It is
// distinct from a DENY verdict: a deny is an answer, this is a refusal to
// answer.
type ClassificationError struct {
	Reason string
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("cannot classify command: %s", e.Reason)
}

// TraversalViolation reports a path argument that resolves outside the
// allowed root directory.
type TraversalViolation struct {
	Path string // the offending argument as written in the command
	Root string // the allowed root it escaped
}

func (e *TraversalViolation) Error() string {
	return fmt.Sprintf("path %q resolves outside allowed root %s", e.Path, e.Root)
}
