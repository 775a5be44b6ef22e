package testutil

// FixedRunID is a store.RunIDGenerator that hands out one ID forever.
// Recording twice through it collides on the runs primary key, which
// tests use to exercise failed recordings.
type FixedRunID string

// DefaultRunID is used when FixedRunID is empty.
const DefaultRunID = "fixed-run"

// Generate returns the fixed ID.
func (id FixedRunID) Generate() string {
	if id == "" {
		return DefaultRunID
	}
	return string(id)
}
