// Package types defines common type-safe enums used across the codebase.
package types

// LogLevel represents a logging verbosity level.
type LogLevel string

const (
	// LogLevelTrace is the most verbose level.
	LogLevelTrace LogLevel = "trace"
	// LogLevelDebug enables debug output.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the default level.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs warnings and errors only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs errors only.
	LogLevelError LogLevel = "error"
)

// Valid returns true if the LogLevel is a known valid value.
// The empty string is valid and means "use the default".
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	}
	return false
}

// Severity represents a risk rule severity level.
type Severity string

const (
	// SeverityBlock denies the command outright.
	SeverityBlock Severity = "block"
	// SeverityWarn allows the command after explicit user confirmation.
	SeverityWarn Severity = "warn"
)

// Valid returns true if the Severity is a known valid value.
func (s Severity) Valid() bool {
	return s == SeverityBlock || s == SeverityWarn
}

// IsBlock returns true if the severity denies execution.
func (s Severity) IsBlock() bool {
	return s == SeverityBlock
}
