package scraper

import "fmt"

// ConfigError marks a request rejected before any browser work started.
// Callers can map it to a 400 instead of a 500.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NavigationError marks a failure while driving the page, annotated with
// the phase and the selector in play so the log line alone localizes the
// breakage.
type NavigationError struct {
	Phase    string
	Selector string
	Err      error
}

func (e *NavigationError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("navigation failed in phase %s (%s): %v", e.Phase, e.Selector, e.Err)
	}
	return fmt.Sprintf("navigation failed in phase %s: %v", e.Phase, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func navErr(phase, selector string, err error) *NavigationError {
	return &NavigationError{Phase: phase, Selector: selector, Err: err}
}
