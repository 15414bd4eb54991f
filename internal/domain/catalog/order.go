package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// LoadOrder sorts tables so every table comes after the tables it references.
// Among tables whose dependencies are satisfied, declaration order wins, so
// the result is deterministic. References to tables outside the list are
// treated as already satisfied.
func LoadOrder(tables []TableSpec) ([]TableSpec, error) {
	present := make(map[string]bool, len(tables))
	for _, t := range tables {
		if present[t.Name] {
			return nil, fmt.Errorf("%w: duplicate table %s", ErrInvalidSpec, t.Name)
		}
		present[t.Name] = true
	}

	placed := make(map[string]bool, len(tables))
	out := make([]TableSpec, 0, len(tables))
	for len(out) < len(tables) {
		progressed := false
		for _, t := range tables {
			if placed[t.Name] || !dependenciesPlaced(t, present, placed) {
				continue
			}
			placed[t.Name] = true
			out = append(out, t)
			progressed = true
			break
		}
		if !progressed {
			var stuck []string
			for _, t := range tables {
				if !placed[t.Name] {
					stuck = append(stuck, t.Name)
				}
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
		}
	}
	return out, nil
}

func dependenciesPlaced(t TableSpec, present, placed map[string]bool) bool {
	for _, dep := range t.DependsOn() {
		if present[dep] && !placed[dep] {
			return false
		}
	}
	return true
}
