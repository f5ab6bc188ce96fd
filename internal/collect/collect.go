// Package collect resolves extracted placeholders into concrete values by
// prompting an input source, then substitutes them back into the command.
// It is the only part of the system that waits on a human.
package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/placeholder"
)

var log = logger.New("collect")

// ErrAborted is returned by an InputSource when the user cancels a prompt,
// for example with ctrl-c. The Collector translates it into a
// CollectionCancelled.
var ErrAborted = errors.New("input aborted")

// Prompt describes one value request handed to an InputSource.
type Prompt struct {
	Name    string // placeholder name, shown as the prompt title
	Default string // optional default, accepted on empty input
}

// InputSource is the abstract capability the Collector suspends on: given
// a prompt return a string, or signal cancellation via error. Exactly one
// prompt is outstanding at a time.
type InputSource interface {
	Ask(ctx context.Context, p Prompt) (string, error)
	Confirm(ctx context.Context, question string) (bool, error)
}

// MissingValueError reports a required placeholder the user left empty
// after the single re-prompt.
type MissingValueError struct {
	Name string
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("no value provided for placeholder %q", e.Name)
}

// CollectionCancelled reports an aborted or timed-out collection. No
// partial substitution has been applied when this is returned.
type CollectionCancelled struct {
	Cause string
}

func (e *CollectionCancelled) Error() string {
	return fmt.Sprintf("input collection cancelled: %s", e.Cause)
}

// Collector drives placeholder resolution against one InputSource.
type Collector struct {
	source  InputSource
	timeout time.Duration // per prompt; zero means no timeout
}

// New builds a Collector. timeout bounds each individual prompt, not the
// whole run; a user filling five placeholders gets the full window for
// each.
func New(source InputSource, timeout time.Duration) *Collector {
	return &Collector{source: source, timeout: timeout}
}

// Resolve collects a value for each placeholder in order and returns the
// command with every span substituted. A command with no placeholders is
// returned unchanged without touching the input source. Substitution is
// all-or-nothing: any failure returns the error and no partially
// substituted command.
func (c *Collector) Resolve(ctx context.Context, command string, phs []placeholder.Placeholder) (string, error) {
	if len(phs) == 0 {
		return command, nil
	}

	values := make([]string, len(phs))
	for i, p := range phs {
		val, err := c.resolveOne(ctx, p)
		if err != nil {
			return "", err
		}
		values[i] = val
	}

	return Substitute(command, phs, values), nil
}

// resolveOne asks for a single placeholder value, applying the default on
// empty input and re-prompting once before giving up.
func (c *Collector) resolveOne(ctx context.Context, p placeholder.Placeholder) (string, error) {
	prompt := Prompt{Name: p.Name, Default: p.DefaultHint}

	val, err := c.ask(ctx, prompt)
	if err != nil {
		return "", err
	}
	if val == "" {
		if p.DefaultHint != "" {
			val = p.DefaultHint
		} else {
			val, err = c.ask(ctx, prompt)
			if err != nil {
				return "", err
			}
			if val == "" {
				return "", &MissingValueError{Name: p.Name}
			}
		}
	}

	if isFilenameLike(p.Name) {
		sanitized := SanitizeFilename(val)
		if sanitized != val {
			log.Warn("sanitized value for %s: %q -> %q", p.Name, val, sanitized)
		}
		if sanitized == "" {
			return "", &MissingValueError{Name: p.Name}
		}
		val = sanitized
	}
	return val, nil
}

// Confirm asks the input source a yes/no question under the same timeout
// rules as value prompts. Used for warn-rule confirmations.
func (c *Collector) Confirm(ctx context.Context, question string) (bool, error) {
	ctx, cancel := c.promptContext(ctx)
	defer cancel()
	ok, err := c.source.Confirm(ctx, question)
	if err != nil {
		return false, &CollectionCancelled{Cause: cancelCause(err)}
	}
	return ok, nil
}

func (c *Collector) ask(ctx context.Context, p Prompt) (string, error) {
	ctx, cancel := c.promptContext(ctx)
	defer cancel()
	val, err := c.source.Ask(ctx, p)
	if err != nil {
		return "", &CollectionCancelled{Cause: cancelCause(err)}
	}
	return strings.TrimSpace(val), nil
}

func (c *Collector) promptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func cancelCause(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "prompt timed out"
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
		return "input aborted"
	default:
		return err.Error()
	}
}

// Substitute replaces each placeholder span with its value. Spans are
// processed in reverse order, highest start offset first, so earlier
// offsets stay valid while replacements change the string length. The
// placeholders must be ordered and non-overlapping, which is what the
// extractor produces.
func Substitute(command string, phs []placeholder.Placeholder, values []string) string {
	out := command
	for i := len(phs) - 1; i >= 0; i-- {
		out = out[:phs[i].Start] + values[i] + out[phs[i].End:]
	}
	return out
}

// isFilenameLike reports whether a placeholder name suggests its value
// ends up as a file or directory name, which makes path separators in the
// value a traversal hazard.
func isFilenameLike(name string) bool {
	lower := strings.ToLower(name)
	return lower == "filename" || strings.HasSuffix(lower, "_file") || strings.HasSuffix(lower, "_name")
}

// filenameStrip holds the characters removed from filename-like values:
// path separators, null bytes, and characters reserved on common
// filesystems.
const filenameStrip = "/\\\x00<>:\"|?*"

// SanitizeFilename strips path separators and reserved characters from a
// value destined for a filename placeholder, so an answer like
// "../../etc/cron.d/job" cannot redirect the command outside the target
// directory.
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(filenameStrip, r) {
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
