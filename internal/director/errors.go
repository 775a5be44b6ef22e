package director

import (
	"errors"
	"fmt"

	"github.com/roach88/storylet/internal/ir"
)

// LookupError reports a storylet key that no longer resolves in the
// library. It is never fatal: the entry referencing the key is dropped.
type LookupError struct {
	// Key is the missing storylet key. Zero when a trigger's tags matched
	// no storylet at all.
	Key ir.StoryletKey

	// Context names where the key was referenced, e.g. "queue" or
	// "pressure famine".
	Context string
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Key == 0 {
		return fmt.Sprintf("LOOKUP: %s resolves to no storylet", e.Context)
	}
	return fmt.Sprintf("LOOKUP: storylet %d no longer resolves (%s)", e.Key, e.Context)
}

// Diagnostic converts the error to its step-result form.
func (e *LookupError) Diagnostic() ir.Diagnostic {
	return ir.Diagnostic{Code: ir.DiagLookup, Message: e.Error(), Key: e.Key, Subject: e.Context}
}

// InvariantViolation reports a value found outside its declared bounds.
// The value has already been clamped when this is reported.
type InvariantViolation struct {
	Subject string // e.g. "heat", "pressure famine", "tick"
	Value   float64
	Min     float64
	Max     float64
}

// Error implements the error interface.
func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("INVARIANT: %s = %g outside [%g, %g]", e.Subject, e.Value, e.Min, e.Max)
}

// Diagnostic converts the violation to its step-result form.
func (e *InvariantViolation) Diagnostic() ir.Diagnostic {
	return ir.Diagnostic{Code: ir.DiagInvariant, Message: e.Error(), Subject: e.Subject}
}

// IsLookupError returns true if the error is a LookupError.
// Uses errors.As to handle wrapped errors.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}

// IsInvariantViolation returns true if the error is an InvariantViolation.
// Uses errors.As to handle wrapped errors.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolation
	return errors.As(err, &iv)
}

// RestoreError reports a snapshot that cannot be restored against the
// current configuration.
type RestoreError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore %s: %s", e.Field, e.Message)
}
