package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTagNotFound is returned when no tag matching a prefix parses as a version.
	ErrTagNotFound = errors.New("no semver tag found")
	// ErrInvalidReleaseType is returned for unknown bump types.
	ErrInvalidReleaseType = errors.New("invalid release type")
	// ErrUnsupportedPlugin is returned when a plugin matches no known shape.
	ErrUnsupportedPlugin = errors.New("unsupported plugin")
)

// ConfigError reports invalid or missing configuration. It is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// SchemaError reports a post-target definition that does not match its
// executor's option schema.
type SchemaError struct {
	Target string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("target %q: %s", e.Target, e.Reason)
}

// IsSchemaError reports whether err wraps a *SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// PhaseError names the release phase that failed together with the phases
// whose side effects were already applied.
type PhaseError struct {
	Phase   PhaseType
	Applied []PhaseType
	Err     error
}

func (e *PhaseError) Error() string {
	msg := fmt.Sprintf("phase %q failed: %v", e.Phase, e.Err)
	if len(e.Applied) == 0 {
		return msg
	}
	applied := make([]string, len(e.Applied))
	for i, p := range e.Applied {
		applied[i] = string(p)
	}
	return fmt.Sprintf("%s (release partially applied, completed phases: %s)", msg, strings.Join(applied, ", "))
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
