package decision

import (
	"fmt"

	textutil "evergreen/internal/pkg/text"
)

// ParseError means the completion was not usable JSON of the expected shape.
type ParseError struct {
	Source string
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable response (%s): %s", e.Source, e.Reason, textutil.Truncate(e.Raw, 200))
}

// ValidationError names the first offending decision field.
type ValidationError struct {
	Source string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: invalid %s: %s", e.Source, e.Field, e.Reason)
}

// CompletionError wraps a failed call to the completion capability.
type CompletionError struct {
	Model   string
	Purpose string
	Err     error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion %s via %s failed: %v", e.Purpose, e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// ContractError is raised for inputs that earlier stages should have ruled
// out, such as a consensus over four outputs.
type ContractError struct {
	Stage  string
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s contract violated: %s", e.Stage, e.Reason)
}

// DebateError carries why a debate round was discarded.
type DebateError struct {
	Err error
}

func (e *DebateError) Error() string { return "debate round rejected: " + e.Err.Error() }
func (e *DebateError) Unwrap() error { return e.Err }
