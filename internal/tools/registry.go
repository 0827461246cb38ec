// Package tools provides the function tools benchmark models may call
// during a run, plus a small registry for selecting them by name.
package tools

import "context"

// Tool is a callable function exposed to models. Schema is a JSON Schema
// object describing the arguments; Execute always returns a result map,
// using a "success": false entry to signal failures to the model rather
// than a Go error.
type Tool struct {
	Name        string
	DisplayName string
	Description string
	Schema      map[string]any
	Execute     func(ctx context.Context, args map[string]any) map[string]any
}

// All returns every available tool in display order.
func All() []Tool {
	return []Tool{
		Calculator(),
		WebSearch(),
	}
}

// Names returns the names of every available tool.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name
	}
	return names
}

// Select returns the tools matching the given names, preserving the
// registry's order. Unknown names are ignored.
func Select(names []string) []Tool {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var selected []Tool
	for _, t := range All() {
		if want[t.Name] {
			selected = append(selected, t)
		}
	}
	return selected
}
