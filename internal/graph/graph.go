// Package graph models references between configured components. It is
// built once at container startup from the injection metadata and is used
// for cycle detection and diagnostics output.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Node represents a component in the reference graph.
type Node struct {
	Name      string
	Type      string
	Singleton bool

	// Known is false for names referenced but never added.
	Known bool

	InDegree  int // number of components referencing this node
	OutDegree int // number of components this node references
	Depth     int // longest path to a leaf, -1 when part of a cycle

	Dependencies []string
	Dependents   []string
}

// DependencyGraph holds the reference relationships between components.
type DependencyGraph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	edges map[string][]string
	order []string
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*Node),
		edges: make(map[string][]string),
	}
}

// AddComponent adds a component and its references. Re-adding a name
// replaces its references.
func (g *DependencyGraph) AddComponent(name, typeName string, singleton bool, refs []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.node(name)
	node.Type = typeName
	node.Singleton = singleton
	node.Known = true

	deps := make([]string, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		g.node(ref)
		deps = append(deps, ref)
	}

	g.edges[name] = deps
	g.updateDegrees()
}

func (g *DependencyGraph) node(name string) *Node {
	n, ok := g.nodes[name]
	if !ok {
		n = &Node{Name: name}
		g.nodes[name] = n
		g.order = append(g.order, name)
	}
	return n
}

// Node returns a copy of the named node.
func (g *DependencyGraph) Node(name string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Size returns the number of nodes.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *DependencyGraph) updateDegrees() {
	for _, n := range g.nodes {
		n.InDegree = 0
		n.OutDegree = 0
		n.Dependents = n.Dependents[:0]
	}

	for _, from := range g.order {
		tos := g.edges[from]
		fromNode := g.nodes[from]
		fromNode.OutDegree = len(tos)
		fromNode.Dependencies = append([]string(nil), tos...)
		for _, to := range tos {
			toNode := g.nodes[to]
			toNode.InDegree++
			toNode.Dependents = append(toNode.Dependents, from)
		}
	}
}

// TopologicalSort returns node names with dependencies first.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	for name := range g.nodes {
		remaining[name] = len(g.edges[name])
	}

	queue := make([]string, 0)
	for _, name := range g.order {
		if remaining[name] == 0 {
			queue = append(queue, name)
		}
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		for _, dependent := range g.nodes[current].Dependents {
			remaining[dependent]--
			if remaining[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	if len(result) != len(g.nodes) {
		return nil, fmt.Errorf("reference cycle detected: graph contains %d nodes but only %d could be sorted",
			len(g.nodes), len(result))
	}

	return result, nil
}

// DetectCycles returns the first cycle whose nodes all satisfy include.
// A nil include considers every node.
func (g *DependencyGraph) DetectCycles(include func(Node) bool) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if include == nil {
		include = func(Node) bool { return true }
	}

	const (
		unvisited = iota
		visiting
		visited
	)

	state := make(map[string]int, len(g.nodes))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		state[name] = visiting
		path = append(path, name)

		for _, dep := range g.edges[name] {
			if !include(*g.nodes[dep]) {
				continue
			}

			switch state[dep] {
			case visiting:
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				return CircularDependencyError{Node: dep, Path: append([]string(nil), path[start:]...)}
			case unvisited:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		state[name] = visited
		return nil
	}

	for _, name := range g.order {
		if state[name] != unvisited || !include(*g.nodes[name]) {
			continue
		}
		if err := visit(name); err != nil {
			return err
		}
	}

	return nil
}

// IsAcyclic reports whether the whole graph is free of cycles.
func (g *DependencyGraph) IsAcyclic() bool {
	return g.DetectCycles(nil) == nil
}

// Roots returns nodes without dependencies, sorted by name.
func (g *DependencyGraph) Roots() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var roots []string
	for name, n := range g.nodes {
		if n.OutDegree == 0 {
			roots = append(roots, name)
		}
	}
	sort.Strings(roots)
	return roots
}

// Leaves returns nodes nothing depends on, sorted by name.
func (g *DependencyGraph) Leaves() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var leaves []string
	for name, n := range g.nodes {
		if n.InDegree == 0 {
			leaves = append(leaves, name)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// CalculateDepths sets Depth on every node. Nodes on a cycle get -1.
func (g *DependencyGraph) CalculateDepths() {
	g.mu.Lock()
	defer g.mu.Unlock()

	memo := make(map[string]int, len(g.nodes))
	inProgress := make(map[string]bool)

	var depth func(name string) int
	depth = func(name string) int {
		if d, ok := memo[name]; ok {
			return d
		}
		if inProgress[name] {
			return -1
		}

		inProgress[name] = true
		deepest := 0
		for _, dep := range g.edges[name] {
			d := depth(dep)
			if d < 0 {
				deepest = -1
				break
			}
			if d+1 > deepest {
				deepest = d + 1
			}
		}
		delete(inProgress, name)

		memo[name] = deepest
		return deepest
	}

	for name, n := range g.nodes {
		n.Depth = depth(name)
	}
}
