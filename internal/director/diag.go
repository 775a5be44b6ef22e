package director

import (
	"log/slog"

	"github.com/roach88/storylet/internal/ir"
)

// recorder collects a step's diagnostics and logs each at Warn.
type recorder struct {
	logger *slog.Logger
	tick   int64
	diags  []ir.Diagnostic
}

func (r *recorder) add(d ir.Diagnostic, attrs ...any) {
	r.diags = append(r.diags, d)
	attrs = append([]any{"tick", r.tick, "code", string(d.Code)}, attrs...)
	r.logger.Warn(d.Message, attrs...)
}

func (r *recorder) lookup(e *LookupError) {
	r.add(e.Diagnostic(), "storylet", uint32(e.Key), "context", e.Context)
}

func (r *recorder) violation(e *InvariantViolation) {
	r.add(e.Diagnostic(), "subject", e.Subject, "value", e.Value)
}

func (r *recorder) malformed(subject, msg string, key ir.StoryletKey) {
	r.add(ir.Diagnostic{Code: ir.DiagMalformed, Message: msg, Key: key, Subject: subject}, "subject", subject)
}

func (r *recorder) evicted(e ir.QueuedEvent) {
	r.add(ir.Diagnostic{
		Code:    ir.DiagEvicted,
		Message: "queue full: evicted " + e.Source.String() + " entry",
		Key:     e.Key,
		Subject: e.Origin,
	}, "storylet", uint32(e.Key), "seq", e.Seq, "source", e.Source.String())
}
