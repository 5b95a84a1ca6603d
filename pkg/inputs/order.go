package inputs

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/neurodesk/viewtext/pkg/config"
)

// declared returns every mapping name, first in the given order and then
// the rest alphabetically.
func declared(order []string, mappings map[string]config.InputMapping) []string {
	out := make([]string, 0, len(mappings))
	seen := make(map[string]bool, len(mappings))
	for _, n := range order {
		if _, ok := mappings[n]; ok && !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	var rest []string
	for n := range mappings {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// dependencies lists the other inputs an operation reads from the flat
// context.
func dependencies(name string, m config.InputMapping, mappings map[string]config.InputMapping) []string {
	if m.Operation == "" || m.Constant != nil {
		return nil
	}
	refs := slices.Clone(m.Sources)
	if len(refs) == 0 && m.ContextKey != "" {
		refs = append(refs, m.ContextKey)
	}
	if m.Condition != nil && m.Condition.Field != "" {
		refs = append(refs, m.Condition.Field)
	}
	var deps []string
	for _, ref := range refs {
		base, _, _ := strings.Cut(ref, ".")
		base, _, _ = strings.Cut(base, "(")
		if base == name {
			continue
		}
		if _, ok := mappings[base]; ok && !slices.Contains(deps, base) {
			deps = append(deps, base)
		}
	}
	return deps
}

// sortInputs orders names so every operation comes after the inputs it
// reads. Among inputs that are ready at the same time, declaration order
// wins.
func sortInputs(names []string, mappings map[string]config.InputMapping) ([]string, error) {
	n := len(names)
	if n == 0 {
		return nil, nil
	}
	index := make(map[string]int, n)
	for i, name := range names {
		index[name] = i
	}

	indeg := make([]int, n)
	out := make([][]int, n)
	for i, name := range names {
		for _, d := range dependencies(name, mappings[name], mappings) {
			j := index[d]
			indeg[i]++
			out[j] = append(out[j], i)
		}
	}
	for i := range out {
		sort.Ints(out[i])
	}

	var ready []int
	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]string, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, names[i])
		for _, j := range out[i] {
			indeg[j]--
			if indeg[j] == 0 {
				k := sort.SearchInts(ready, j)
				ready = slices.Insert(ready, k, j)
			}
		}
	}

	if len(order) != n {
		var stuck []string
		for i := range n {
			if indeg[i] > 0 {
				stuck = append(stuck, names[i])
			}
		}
		return nil, fmt.Errorf("inputs have cyclic sources: %s", strings.Join(stuck, ", "))
	}
	return order, nil
}
