// Package director implements the narrative event director: a deterministic
// per-tick scheduler that decides which storylet fires next.
//
// Each call to Director.Step runs one tick of the pipeline:
//
//	milestone progress -> pressure advance -> heat relaxation
//	  -> trigger resolution and enqueue -> cooldown pruning
//	  -> eligibility (fresh candidates) + DrainReady (queued candidates)
//	  -> scoring and ranking -> selection -> post-fire mutation
//
// State is a single mutable aggregate owned by the host and passed by
// exclusive reference into Step, which is its only mutator. Step performs
// no I/O and never blocks.
//
// CRITICAL: Given identical (config, library, state, input) Step produces a
// bit-identical result and resulting state. All randomness (score jitter)
// derives from the world seed, the tick and the storylet key. Map iteration
// never leaks into output: every traversal that affects results walks keys
// in sorted order.
package director
