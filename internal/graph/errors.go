package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError represents a reference cycle between components.
type CircularDependencyError struct {
	Node string
	Path []string
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular component reference detected:\n\n")

	path := e.Path
	if len(path) == 0 {
		path = []string{e.Node}
	}

	for _, name := range path {
		b.WriteString(fmt.Sprintf("    %s\n", name))
		b.WriteString("      ↓\n")
	}
	b.WriteString(fmt.Sprintf("    %s (cycle)\n", path[0]))

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Make one of the components a singleton\n")
	b.WriteString("  • Resolve the reference lazily through the component context\n")

	return b.String()
}
