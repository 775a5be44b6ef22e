package config

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for configuration failures.
const (
	ErrCodeMalformed        = "MALFORMED"
	ErrCodeInvalidHeat      = "INVALID_HEAT"
	ErrCodeInvalidPressure  = "INVALID_PRESSURE"
	ErrCodeInvalidMilestone = "INVALID_MILESTONE"
	ErrCodeInvalidScoring   = "INVALID_SCORING"
	ErrCodeInvalidQueue     = "INVALID_QUEUE"
	ErrCodeDuplicateID      = "DUPLICATE_ID"
	ErrCodeUnknownTier      = "UNKNOWN_TIER"
)

// ConfigError is a single configuration problem, located by field path.
type ConfigError struct {
	Code    string
	Field   string // Dotted path, e.g. "pressures[0].fire_threshold"
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("config [%s] %s: %s", e.Code, e.Field, e.Message)
}

// Errors aggregates every problem found by Validate.
type Errors []*ConfigError

func (es Errors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d config errors:\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (es Errors) Unwrap() []error {
	out := make([]error, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

func (es *Errors) add(code, field, msg string) {
	*es = append(*es, &ConfigError{Code: code, Field: field, Message: msg})
}

func (es Errors) err() error {
	if len(es) == 0 {
		return nil
	}
	return es
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// HasCode reports whether err contains a ConfigError with the given code.
func HasCode(err error, code string) bool {
	var es Errors
	if errors.As(err, &es) {
		for _, e := range es {
			if e.Code == code {
				return true
			}
		}
		return false
	}
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Code == code
}
