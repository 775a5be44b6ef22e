package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario directory holds no
// scenario files matching the filter.
type ScenarioNotFoundError struct {
	Dir    string
	Filter string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	if e.Filter != "" {
		return fmt.Sprintf("no scenario files in %s match %q", e.Dir, e.Filter)
	}
	return fmt.Sprintf("no scenario files in %s", e.Dir)
}

// FindScenarios returns the .yaml and .yml files directly under dir,
// sorted. A non-empty filter is a filepath.Match glob applied to the base
// name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		if filter != "" {
			if ok, _ := filepath.Match(filter, strings.TrimSuffix(e.Name(), ext)); !ok {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, &ScenarioNotFoundError{Dir: dir, Filter: filter}
	}
	slices.Sort(files)
	return files, nil
}

// GoldenPath returns the golden file for a scenario file:
// <dir>/golden/<base>.golden.
func GoldenPath(scenarioFile string) string {
	base := strings.TrimSuffix(filepath.Base(scenarioFile), filepath.Ext(scenarioFile))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", base+".golden")
}
