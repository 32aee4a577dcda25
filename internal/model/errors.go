package model

import "fmt"

// ValidationError reports a malformed value coming from the service or an input file.
// Records failing validation are skipped by callers; the run continues.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ConfigurationError reports an invalid flag, setting or flag combination.
// It is always raised before any network call is made.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Setting, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Setting, e.Value, e.Reason)
}
