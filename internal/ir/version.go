package ir

// Version constants for persisted records and the director.
const (
	// SnapshotVersion is the persisted snapshot layout version.
	SnapshotVersion = 1

	// DirectorVersion is the director release recorded with each run.
	DirectorVersion = "0.1.0"
)
