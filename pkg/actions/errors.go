package actions

import "fmt"

// InvalidInputError reports a mandatory action input that is missing or
// unset. Actions return it before anything is submitted to the executor.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("'%s' must be provided.", e.Field)
}

func missingInput(field string) error {
	return &InvalidInputError{Field: field}
}

// ConfigError reports an input that is present but semantically unusable,
// such as an unknown scroll method or a locator block with no strategy set.
// Actions return it before anything is submitted to the executor.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

func configErrorf(format string, args ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// TemplateError reports a selector template that could not be formatted
// against the run state, either because the template itself is malformed or
// because a referenced key has no value. It is a distinct type so callers
// can tell a bad template apart from a missing locator strategy.
type TemplateError struct {
	Template string
	Cause    error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("Error formatting selector: %s. Error: %v", e.Template, e.Cause)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}
