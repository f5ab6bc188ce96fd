package classify

import (
	"fmt"
	"regexp"
)

// requestInjectionPatterns flag natural-language request text that is
// trying to smuggle executable syntax toward the model. The request never
// reaches the auditor itself, so this list stays deliberately small and
// obvious; the real gate is the classification of the produced command.
var requestInjectionPatterns = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`\$\(`), "command substitution"},
	{regexp.MustCompile("`[^`]*`"), "backtick command execution"},
	{regexp.MustCompile(`\beval\s*\(`), "eval call"},
	{regexp.MustCompile(`\bsystem\s*\(`), "system call"},
	{regexp.MustCompile(`\bexec\s*\(`), "exec call"},
	{regexp.MustCompile(`;\s*rm\s`), "chained rm"},
	{regexp.MustCompile(`;\s*dd\s`), "chained dd"},
	{regexp.MustCompile(`(?i)<script>`), "script tag"},
}

// RequestRejectedError reports natural-language request text that failed
// pre-validation.
type RequestRejectedError struct {
	Reason string
}

func (e *RequestRejectedError) Error() string {
	return fmt.Sprintf("request rejected: contains %s", e.Reason)
}

// MaxRequestLength caps natural-language request text.
const MaxRequestLength = 2048

// ValidateRequest screens a natural-language request string before it is
// forwarded upstream. It rejects empty and oversized requests and a short
// list of injection idioms that have no business in prose.
func ValidateRequest(text string) error {
	if text == "" {
		return &RequestRejectedError{Reason: "empty request"}
	}
	if len(text) > MaxRequestLength {
		return &RequestRejectedError{Reason: fmt.Sprintf("request longer than %d bytes", MaxRequestLength)}
	}
	for _, p := range requestInjectionPatterns {
		if p.re.MatchString(text) {
			return &RequestRejectedError{Reason: p.reason}
		}
	}
	return nil
}
