// Package snapshot reads and writes portable director snapshot files.
//
// A file is a zstd stream holding one JSON header line followed by the
// snapshot body in canonical JSON. Floats in the body are IEEE-754 bit
// patterns, so a file restores to a bit-identical state. Read validates the
// body against an embedded JSON Schema and checks the header digest.
package snapshot

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roach88/storylet/internal/ir"
)

// Format identifies storylet snapshot files in the header.
const Format = "storylet-snapshot"

//go:embed snapshot.schema.json
var schemaJSON string

var bodySchema = jsonschema.MustCompileString("snapshot.schema.json", schemaJSON)

// Header is the first line of a snapshot file.
type Header struct {
	Format  string `json:"format"`
	Version int    `json:"version"`
	RunID   string `json:"run_id,omitempty"`
	Tick    int64  `json:"tick"`
	Digest  string `json:"digest"`
}

// Write stores snap at path, creating parent directories.
func Write(path, runID string, snap ir.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := Encode(f, runID, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Encode writes snap to w in the snapshot file format.
func Encode(w io.Writer, runID string, snap ir.Snapshot) error {
	body, err := ir.MarshalCanonical(snap.IR())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	hb, err := json.Marshal(Header{
		Format:  Format,
		Version: snap.Version,
		RunID:   runID,
		Tick:    snap.Tick,
		Digest:  digest,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	bw := bufio.NewWriter(enc)
	bw.Write(hb)
	bw.WriteByte('\n')
	bw.Write(body)
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return nil
}

// Read loads the snapshot file at path.
func Read(path string) (Header, ir.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, ir.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a snapshot file from r, validates it and checks its digest.
func Decode(r io.Reader) (Header, ir.Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Header{}, ir.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return Header{}, ir.Snapshot{}, fmt.Errorf("decode snapshot header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, ir.Snapshot{}, fmt.Errorf("decode snapshot header: %w", err)
	}
	if h.Format != Format {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot: format %q, want %q", h.Format, Format)
	}
	if h.Version != ir.SnapshotVersion {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot: unsupported version %d", h.Version)
	}

	body, err := io.ReadAll(br)
	if err != nil {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot body: %w", err)
	}
	if err := validate(body); err != nil {
		return h, ir.Snapshot{}, err
	}

	var w wireSnapshot
	if err := json.Unmarshal(body, &w); err != nil {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot body: %w", err)
	}
	snap, err := w.snapshot()
	if err != nil {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot body: %w", err)
	}

	digest, err := ir.SnapshotDigest(snap)
	if err != nil {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if digest != h.Digest {
		return h, ir.Snapshot{}, fmt.Errorf("decode snapshot: digest mismatch: header %s, body %s", h.Digest, digest)
	}
	return h, snap, nil
}

// ValidationError reports a body that does not match the snapshot schema.
type ValidationError struct {
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid snapshot body: %v", e.Err)
}

// Unwrap returns the schema validation error.
func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is a schema validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validate(body []byte) error {
	d := json.NewDecoder(bytes.NewReader(body))
	d.UseNumber()
	var doc any
	if err := d.Decode(&doc); err != nil {
		return fmt.Errorf("decode snapshot body: %w", err)
	}
	if err := bodySchema.Validate(doc); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// wireSnapshot mirrors ir.Snapshot.IR(): floats are int64 bit patterns and
// sources are names.
type wireSnapshot struct {
	Version   int   `json:"version"`
	Seed      int64 `json:"seed"`
	Tick      int64 `json:"tick"`
	Heat      int64 `json:"heat"`
	NextSeq   int64 `json:"next_seq"`
	Cooldowns []struct {
		Key       ir.StoryletKey `json:"key"`
		LastFired int64          `json:"last_fired"`
	} `json:"cooldowns"`
	Pressures []struct {
		ID                string `json:"id"`
		Value             int64  `json:"value"`
		CooldownRemaining int64  `json:"cooldown_remaining"`
	} `json:"pressures"`
	Milestones []struct {
		ID       string `json:"id"`
		Stage    int    `json:"stage"`
		Progress int64  `json:"progress"`
	} `json:"milestones"`
	Queue []ir.QueuedEvent `json:"queue"`
}

func (w *wireSnapshot) snapshot() (ir.Snapshot, error) {
	snap := ir.Snapshot{
		Version:    w.Version,
		Seed:       w.Seed,
		Tick:       w.Tick,
		Heat:       fromBits(w.Heat),
		NextSeq:    w.NextSeq,
		Cooldowns:  make([]ir.CooldownEntry, len(w.Cooldowns)),
		Pressures:  make([]ir.PressureEntry, len(w.Pressures)),
		Milestones: make([]ir.MilestoneEntry, len(w.Milestones)),
		Queue:      w.Queue,
	}
	for i, c := range w.Cooldowns {
		snap.Cooldowns[i] = ir.CooldownEntry{Key: c.Key, LastFired: c.LastFired}
	}
	for i, p := range w.Pressures {
		snap.Pressures[i] = ir.PressureEntry{ID: p.ID, Value: fromBits(p.Value), CooldownRemaining: p.CooldownRemaining}
	}
	for i, m := range w.Milestones {
		snap.Milestones[i] = ir.MilestoneEntry{ID: m.ID, Stage: m.Stage, Progress: fromBits(m.Progress)}
	}
	if snap.Queue == nil {
		snap.Queue = []ir.QueuedEvent{}
	}
	for _, e := range snap.Queue {
		if !e.Source.Queued() {
			return ir.Snapshot{}, fmt.Errorf("queue entry %d: source %s cannot be queued", e.Seq, e.Source)
		}
	}
	return snap, nil
}

func fromBits(b int64) float64 {
	return math.Float64frombits(uint64(b))
}
