// Package audit orchestrates the full safety review of one proposed
// command: classification, warn confirmation, placeholder collection,
// substitution, and a second classification of the final string. The
// resulting Decision is the single artifact handed to whatever executes
// the command; this package never executes anything itself.
package audit

import (
	"context"
	"time"

	"github.com/ishangarg01/cmd-gen/internal/classify"
	"github.com/ishangarg01/cmd-gen/internal/collect"
	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/placeholder"
)

var log = logger.New("audit")

// Decision is the pipeline output. A denied Decision carries the reason
// and an empty FinalCommand; nothing downstream should run.
type Decision struct {
	FinalCommand string `json:"final_command,omitempty"`
	Allowed      bool   `json:"allowed"`
	Reason       string `json:"reason,omitempty"`
}

// Entry is one decision as recorded to history.
type Entry struct {
	Timestamp    time.Time
	RawCommand   string
	FinalCommand string
	Allowed      bool
	Reason       string
	Rule         string // matched rule name, empty when no rule involved
}

// Recorder persists decisions. The pipeline treats recording as best
// effort: a failing recorder is logged, never surfaced, and never changes
// the Decision.
type Recorder interface {
	RecordDecision(ctx context.Context, e Entry) error
}

// Pipeline wires the audit stages together. Safe for concurrent use when
// its parts are; the interactive collector serializes prompts itself.
type Pipeline struct {
	classifier *classify.Classifier
	extractor  *placeholder.Extractor
	collector  *collect.Collector
	recorder   Recorder // optional
}

// New builds a Pipeline. recorder may be nil to disable history.
func New(c *classify.Classifier, e *placeholder.Extractor, col *collect.Collector, recorder Recorder) *Pipeline {
	return &Pipeline{classifier: c, extractor: e, collector: col, recorder: recorder}
}

// Audit reviews one raw command end to end.
//
// The error return is reserved for input the pipeline cannot evaluate at
// all (an empty command string). Every other failure mode, including
// cancellation, missing values, and traversal, resolves to a denied
// Decision: ambiguity never falls through to execution.
func (p *Pipeline) Audit(ctx context.Context, rawCommand string) (Decision, error) {
	// First pass runs before any interaction. A command already known
	// unsafe must never cost the user a prompt.
	verdict, err := p.classifier.Classify(rawCommand)
	if err != nil {
		return Decision{}, err
	}
	if !verdict.Allowed {
		return p.deny(ctx, rawCommand, verdict.Reason, ruleName(verdict)), nil
	}

	if verdict.Warned() {
		ok, err := p.collector.Confirm(ctx, verdict.Reason+". Proceed?")
		if err != nil {
			return p.deny(ctx, rawCommand, err.Error(), ""), nil
		}
		if !ok {
			return p.deny(ctx, rawCommand, "declined: "+verdict.Reason, ""), nil
		}
	}

	phs := p.extractor.Extract(rawCommand)
	final, err := p.collector.Resolve(ctx, rawCommand, phs)
	if err != nil {
		return p.deny(ctx, rawCommand, err.Error(), ""), nil
	}

	// Second pass on the fully substituted command. User-supplied values
	// are untrusted, so a deny here overrides the earlier allow.
	second, err := p.classifier.Classify(final)
	if err != nil {
		return Decision{}, err
	}
	if !second.Allowed {
		return p.deny(ctx, rawCommand, second.Reason, ruleName(second)), nil
	}

	// A warning the substituted values introduced still needs consent.
	// One already confirmed on the first pass is not asked again.
	if second.Warned() && second.Reason != verdict.Reason {
		ok, err := p.collector.Confirm(ctx, second.Reason+". Proceed?")
		if err != nil {
			return p.deny(ctx, rawCommand, err.Error(), ""), nil
		}
		if !ok {
			return p.deny(ctx, rawCommand, "declined: "+second.Reason, ""), nil
		}
	}

	d := Decision{FinalCommand: final, Allowed: true}
	p.record(ctx, rawCommand, d, "")
	return d, nil
}

func (p *Pipeline) deny(ctx context.Context, raw, reason, rule string) Decision {
	d := Decision{Allowed: false, Reason: reason}
	p.record(ctx, raw, d, rule)
	return d
}

func (p *Pipeline) record(ctx context.Context, raw string, d Decision, rule string) {
	if p.recorder == nil {
		return
	}
	e := Entry{
		Timestamp:    time.Now().UTC(),
		RawCommand:   raw,
		FinalCommand: d.FinalCommand,
		Allowed:      d.Allowed,
		Reason:       d.Reason,
		Rule:         rule,
	}
	if err := p.recorder.RecordDecision(ctx, e); err != nil {
		log.Warn("failed to record decision: %v", err)
	}
}

func ruleName(v classify.Verdict) string {
	if v.Rule == nil {
		return ""
	}
	return v.Rule.Name
}
