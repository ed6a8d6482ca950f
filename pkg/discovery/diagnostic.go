// SPDX-License-Identifier: MPL-2.0

package discovery

import "github.com/charmbracelet/log"

const (
	// SeverityWarning indicates a recoverable discovery warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a non-fatal discovery error diagnostic.
	SeverityError Severity = "error"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic is a structured record of a per-candidate or per-provider
	// failure that discovery contained and skipped. Diagnostics flow to the
	// injected sink rather than aborting the search.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "probe_failed").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the file path associated with this diagnostic (optional).
		Path string
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}

	// Sink receives diagnostics during discovery.
	Sink interface {
		Report(Diagnostic)
	}

	// LogSink forwards diagnostics to a charmbracelet logger.
	LogSink struct {
		Logger *log.Logger
	}

	// CollectSink accumulates diagnostics for later inspection. Not safe for
	// concurrent use; one discovery call is sequential.
	CollectSink struct {
		Diagnostics []Diagnostic
	}

	// discardSink drops diagnostics; used when the caller injects no sink.
	discardSink struct{}
)

// Report logs the diagnostic at a level matching its severity.
func (s LogSink) Report(d Diagnostic) {
	if s.Logger == nil {
		return
	}
	fields := []any{"code", d.Code}
	if d.Path != "" {
		fields = append(fields, "path", d.Path)
	}
	if d.Cause != nil {
		fields = append(fields, "err", d.Cause)
	}
	switch d.Severity {
	case SeverityError:
		s.Logger.Error(d.Message, fields...)
	default:
		s.Logger.Warn(d.Message, fields...)
	}
}

// Report appends the diagnostic.
func (s *CollectSink) Report(d Diagnostic) {
	s.Diagnostics = append(s.Diagnostics, d)
}

func (discardSink) Report(Diagnostic) {}
