package graph

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Visualizer writes the reference graph in human or Graphviz form.
type Visualizer struct {
	graph *DependencyGraph
}

// NewVisualizer creates a new graph visualizer
func NewVisualizer(graph *DependencyGraph) *Visualizer {
	return &Visualizer{graph: graph}
}

// WriteDOT writes the graph in Graphviz DOT format. Nodes and edges are
// emitted in registration order so the output is stable.
func (v *Visualizer) WriteDOT(w io.Writer) error {
	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	var b strings.Builder
	b.WriteString("digraph components {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	ids := make(map[string]string, len(v.graph.order))
	for i, name := range v.graph.order {
		id := fmt.Sprintf("n%d", i)
		ids[name] = id
		node := v.graph.nodes[name]
		fmt.Fprintf(&b, "  %s [label=\"%s\", fillcolor=\"%s\", style=filled];\n",
			id, formatNodeLabel(node), nodeColor(node))
	}

	for _, from := range v.graph.order {
		for _, to := range v.graph.edges[from] {
			fmt.Fprintf(&b, "  %s -> %s;\n", ids[from], ids[to])
		}
	}

	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteText writes the graph as an adjacency listing followed by statistics.
func (v *Visualizer) WriteText(w io.Writer) error {
	v.graph.CalculateDepths()
	acyclic := v.graph.IsAcyclic()
	roots := v.graph.Roots()
	leaves := v.graph.Leaves()

	v.graph.mu.RLock()
	defer v.graph.mu.RUnlock()

	var b strings.Builder
	b.WriteString("Component Graph:\n")
	b.WriteString("================\n\n")

	names := append([]string(nil), v.graph.order...)
	sort.Strings(names)

	for _, name := range names {
		node := v.graph.nodes[name]
		fmt.Fprintf(&b, "%s -> [%s]\n", name, strings.Join(v.graph.edges[name], ", "))
		if node.Depth < 0 {
			b.WriteString("  (in cycle)\n")
		}
	}

	b.WriteString("\nStatistics:\n")
	b.WriteString("-----------\n")
	fmt.Fprintf(&b, "  Total nodes: %d\n", len(v.graph.nodes))
	fmt.Fprintf(&b, "  Total edges: %d\n", v.countEdges())
	fmt.Fprintf(&b, "  Root nodes (no references): %d\n", len(roots))
	fmt.Fprintf(&b, "  Leaf nodes (unreferenced): %d\n", len(leaves))
	if acyclic {
		b.WriteString("  Cycles: None\n")
	} else {
		b.WriteString("  Cycles: DETECTED\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatNodeLabel(node *Node) string {
	typeStr := node.Type
	if i := strings.LastIndex(typeStr, "."); i >= 0 {
		typeStr = typeStr[i+1:]
	}

	if typeStr == "" {
		return fmt.Sprintf("%s\\nIn:%d Out:%d", node.Name, node.InDegree, node.OutDegree)
	}

	return fmt.Sprintf("%s\\n[%s]\\nIn:%d Out:%d", node.Name, typeStr, node.InDegree, node.OutDegree)
}

func nodeColor(node *Node) string {
	switch {
	case !node.Known:
		return "lightgray"
	case node.Singleton:
		return "lightblue"
	default:
		return "lightyellow"
	}
}

func (v *Visualizer) countEdges() int {
	count := 0
	for _, edges := range v.graph.edges {
		count += len(edges)
	}
	return count
}
