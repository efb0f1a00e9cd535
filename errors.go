package toolpick

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for toolpick. Use errors.Is to check.
var (
	ErrSchema           = errors.New("schema error")
	ErrConfig           = errors.New("configuration error")
	ErrStreamIntegrity  = errors.New("stream integrity violation")
	ErrActionValidation = errors.New("action validation failed")
	ErrStreamAborted    = errors.New("stream aborted by consumer")
	ErrReconcilerDone   = errors.New("reconciler already finalized")
)

// SchemaError reports an action description that cannot be compiled into the
// type contract (missing title, unknown type, unresolvable reference, ...).
// Path locates the offending node, e.g. "get_weather.arguments.unit".
type SchemaError struct {
	Path   string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema error: %s", e.Reason)
	}
	return fmt.Sprintf("schema error at %s: %s", e.Path, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Is reports ErrSchema so callers can match without errors.As.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ConfigError reports an unusable assembly request (blank slot, no actions, ...).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// StreamIntegrityError is returned when the snapshot stream violates the
// append-only contract: the reply text shrank or was rewritten, or the selected
// action changed after it was locked. The run must be aborted.
type StreamIntegrityError struct {
	Reason string
}

func (e *StreamIntegrityError) Error() string {
	return fmt.Sprintf("stream integrity violation: %s", e.Reason)
}

func (e *StreamIntegrityError) Is(target error) bool { return target == ErrStreamIntegrity }

// ActionValidationError is returned by the finalizer when the final snapshot
// names an action that was never offered, or when its arguments do not satisfy
// the action's parameter schema. Err carries the validator's report, if any.
type ActionValidationError struct {
	Action string
	Known  []string
	Reason string
	Err    error
}

func (e *ActionValidationError) Error() string {
	var b strings.Builder
	b.WriteString("action validation failed")
	if e.Action != "" {
		fmt.Fprintf(&b, " for %q", e.Action)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if len(e.Known) > 0 {
		fmt.Fprintf(&b, " (known actions: %s)", strings.Join(e.Known, ", "))
	}
	return b.String()
}

func (e *ActionValidationError) Unwrap() error { return e.Err }

func (e *ActionValidationError) Is(target error) bool { return target == ErrActionValidation }

// SystemError represents an internal failure inside a Client (panic, transport bug).
// The underlying message is kept out of Error().
type SystemError struct {
	Err error
}

func (e *SystemError) Error() string {
	return "internal system error during model call"
}

func (e *SystemError) Unwrap() error { return e.Err }

// IsSchemaError returns true if err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// IsConfigError returns true if err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsStreamIntegrityError returns true if err is or wraps a StreamIntegrityError.
func IsStreamIntegrityError(err error) bool {
	var se *StreamIntegrityError
	return errors.As(err, &se)
}

// IsActionValidationError returns true if err is or wraps an ActionValidationError.
func IsActionValidationError(err error) bool {
	var ae *ActionValidationError
	return errors.As(err, &ae)
}

// IsSystemError returns true if err is or wraps a SystemError.
func IsSystemError(err error) bool {
	var se *SystemError
	return errors.As(err, &se)
}

// wrapYieldError marks an error returned by a consumer callback as a stream abort
// while keeping the original error reachable.
func wrapYieldError(err error) error {
	return fmt.Errorf("%w: %w", ErrStreamAborted, err)
}

// malformed wraps a decode failure of model output.
func malformed(what string, err error) error {
	return &StreamIntegrityError{Reason: fmt.Sprintf("malformed %s: %v", what, err)}
}
