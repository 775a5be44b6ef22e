package cli

import (
	"fmt"
	"os"

	"github.com/roach88/storylet/internal/store"
)

// openExisting opens a database that must already exist. store.Open would
// create an empty one, hiding a mistyped path.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	return store.Open(path)
}
