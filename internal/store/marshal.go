package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/storylet/internal/ir"
)

// marshalResult converts a StepResult to JSON TEXT for storage.
// Floats are written in Go's shortest round-trip form, so decoding yields
// bit-identical values; the canonical digest is stored alongside.
func marshalResult(r ir.StepResult) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalResult parses JSON TEXT back into a StepResult.
func unmarshalResult(data string) (ir.StepResult, error) {
	var r ir.StepResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return ir.StepResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return r, nil
}

func floatToBits(f float64) int64 {
	return int64(math.Float64bits(f))
}

func bitsToFloat(b int64) float64 {
	return math.Float64frombits(uint64(b))
}

// firedKey is the nullable fired_key column value for r.
func firedKey(r ir.StepResult) any {
	if r.Fired == nil {
		return nil
	}
	return int64(r.Fired.Key)
}
