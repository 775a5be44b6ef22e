// Package harness runs director scenarios: a storylet library, a director
// configuration and a scripted host, stepped for a fixed number of ticks
// from a seed, then checked with assertions and golden traces.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: famine_relief
//	description: "Famine pressure queues relief once hunger mounts"
//	library: library            # CUE directory, relative to this file
//	config: director.yaml       # optional; defaults to config.Default()
//	seed: 7
//	ticks: 30
//	snapshot_every: 10          # optional; snapshots when recorded to a store
//	world:
//	  life_stage: adult
//	  stats: { wealth: 10 }
//	  relationships:
//	    - { actor: player, target: mayor, axis: trust, value: 30 }
//	  tags: [autumn]
//	memory:
//	  - { tick: 0, actor: player, target: mayor, tags: [helped] }
//	inputs:
//	  - tick: 4
//	    progress: [{ milestone: career, delta: 12 }]
//	    resolve: [famine]
//	    schedule: [{ key: 3, source: player, delay: 2 }]
//	    world: { add_stats: { wealth: -5 }, add_tags: [drought] }
//	outcomes:
//	  relief/arrives:
//	    stats: { food: 5 }
//	    resolve: [famine]
//	assertions:
//	  - { type: fired_at, key: 1, tick: 5 }
//	  - { type: never_fired, key: 9 }
//
// # Host Loop
//
// Before each tick the host applies that tick's world edits and memory
// facts, then hands the director the scripted progress, resolutions and
// schedule requests, preceded by those produced by the previous firing.
// When a storylet fires, the effect bound to its outcome changes the world
// and memory at once; its progress, resolutions and schedule requests are
// reported on the next tick.
//
// # Assertion Types
//
//   - fired_at: key fired at tick
//   - no_fire_at: nothing fired at tick
//   - fire_count: key fired exactly count times
//   - never_fired: key never fired
//   - expired: key expired from the queue (at tick when given)
//   - heat_between: heat within [min, max] at tick, or at every tick
//   - final_queue_len: queue length after the last tick
//
// # Determinism
//
// Run executes every scenario twice and compares state and result digests
// step by step. Golden files hold the canonical JSON trace.
package harness
