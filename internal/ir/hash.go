package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests.
// Version suffix enables future algorithm migration.
const (
	DomainSnapshot = "storylet/snapshot/v1"
	DomainResult   = "storylet/result/v1"
	DomainConfig   = "storylet/config/v1"
	DomainLibrary  = "storylet/library/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes the canonical JSON form of v under the given domain.
func Digest(domain string, v IRValue) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// SnapshotDigest identifies a director state. Two states digest equal only
// when every field, floats included, is bit-identical.
func SnapshotDigest(s Snapshot) (string, error) {
	return Digest(DomainSnapshot, s.IR())
}

// ResultDigest identifies a step result.
func ResultDigest(r StepResult) (string, error) {
	return Digest(DomainResult, r.IR())
}

// IR converts the snapshot to its canonical value form.
func (s Snapshot) IR() IRObject {
	cooldowns := make(IRArray, len(s.Cooldowns))
	for i, c := range s.Cooldowns {
		cooldowns[i] = IRObject{"key": IRInt(c.Key), "last_fired": IRInt(c.LastFired)}
	}
	pressures := make(IRArray, len(s.Pressures))
	for i, p := range s.Pressures {
		pressures[i] = IRObject{
			"id":                 IRString(p.ID),
			"value":              FloatBits(p.Value),
			"cooldown_remaining": IRInt(p.CooldownRemaining),
		}
	}
	milestones := make(IRArray, len(s.Milestones))
	for i, m := range s.Milestones {
		milestones[i] = IRObject{
			"id":       IRString(m.ID),
			"stage":    IRInt(m.Stage),
			"progress": FloatBits(m.Progress),
		}
	}
	queue := make(IRArray, len(s.Queue))
	for i, e := range s.Queue {
		queue[i] = e.IR()
	}
	return IRObject{
		"version":    IRInt(s.Version),
		"seed":       IRInt(s.Seed),
		"tick":       IRInt(s.Tick),
		"heat":       FloatBits(s.Heat),
		"next_seq":   IRInt(s.NextSeq),
		"cooldowns":  cooldowns,
		"pressures":  pressures,
		"milestones": milestones,
		"queue":      queue,
	}
}

// IR converts the queue entry to its canonical value form.
func (e QueuedEvent) IR() IRObject {
	return IRObject{
		"key":            IRInt(e.Key),
		"source":         IRString(e.Source.String()),
		"ready_tick":     IRInt(e.ReadyTick),
		"seq":            IRInt(e.Seq),
		"max_wait_ticks": IRInt(e.MaxWaitTicks),
		"origin":         IRString(e.Origin),
	}
}

// IR converts the step result to its canonical value form.
// Diagnostic messages are excluded; their codes and subjects are kept.
func (r StepResult) IR() IRObject {
	obj := IRObject{
		"tick":       IRInt(r.Tick),
		"heat":       FloatBits(r.Heat),
		"candidates": IRInt(r.Candidates),
		"expired":    keysIR(r.Expired),
		"evicted":    keysIR(r.Evicted),
	}
	if r.Fired != nil {
		obj["fired"] = IRObject{
			"key":     IRInt(r.Fired.Key),
			"outcome": IRString(r.Fired.Outcome),
			"source":  IRString(r.Fired.Source.String()),
			"score":   FloatBits(r.Fired.Score),
		}
	}
	diags := make(IRArray, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		diags[i] = IRObject{
			"code":    IRString(string(d.Code)),
			"key":     IRInt(d.Key),
			"subject": IRString(d.Subject),
		}
	}
	obj["diagnostics"] = diags
	return obj
}

func keysIR(keys []StoryletKey) IRArray {
	arr := make(IRArray, len(keys))
	for i, k := range keys {
		arr[i] = IRInt(k)
	}
	return arr
}

// MustSnapshotDigest is like SnapshotDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSnapshotDigest(s Snapshot) string {
	d, err := SnapshotDigest(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MustResultDigest is like ResultDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustResultDigest(r StepResult) string {
	d, err := ResultDigest(r)
	if err != nil {
		panic(err)
	}
	return d
}
