// Package ir provides the foundation records shared by every storylet package.
//
// This package contains record types, canonical JSON and digests only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// the records the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Storylet keys are numeric; numeric order is the final tie-break
//   - Queue order is the explicit (ready_tick, seq) tuple, never map order
//   - Logical ticks and sequence numbers only, never wall-clock timestamps
//   - Digests encode floats by IEEE-754 bit pattern, so equal digests mean
//     bit-identical state
//   - All JSON tags use snake_case
package ir
