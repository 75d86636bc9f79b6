package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// TermCycle represents terms of a program spec that reference each other.
//
// A recorded program is a DAG by construction, so any cycle in a spec is an
// error and the spec cannot be built.
type TermCycle struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeTermCycles performs static cycle analysis on spec terms.
//
// The algorithm:
//  1. Build term → referenced term graph from args (inputs are leaves)
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a cycle
//
// A DAG (no cycles) returns an empty list. Cycles are reported in a
// deterministic order.
func AnalyzeTermCycles(terms []TermSpec) []TermCycle {
	if len(terms) == 0 {
		return []TermCycle{}
	}

	graph := buildTermGraph(terms)
	sccs := tarjanSCC(graph)

	cycles := []TermCycle{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			cycles = append(cycles, sccToCycle(scc, graph))
		}
	}
	slices.SortFunc(cycles, func(a, b TermCycle) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return cycles
}

// termGraph maps term name → names of the terms it references.
type termGraph map[string][]string

// buildTermGraph constructs the reference graph. Only references to other
// terms become edges; inputs and undefined names are not nodes.
func buildTermGraph(terms []TermSpec) termGraph {
	graph := make(termGraph, len(terms))
	for _, term := range terms {
		graph[term.Name] = []string{}
	}
	for _, term := range terms {
		for _, arg := range term.Args {
			if _, isTerm := graph[arg.Ref]; arg.IsRef && isTerm {
				graph[term.Name] = append(graph[term.Name], arg.Ref)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph termGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs in reverse topological order: every SCC comes after
// the SCCs it references. Nodes are visited in sorted order so the result
// is deterministic.
func tarjanSCC(graph termGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// termOrder returns the term names so that every term follows the terms it
// references. It assumes the graph is acyclic.
func termOrder(terms []TermSpec) []string {
	var order []string
	for _, scc := range tarjanSCC(buildTermGraph(terms)) {
		order = append(order, scc...)
	}
	return order
}

// sccToCycle converts an SCC to a TermCycle.
//
// For self-loops, the path is [term, term].
// For multi-node cycles, the path shows a cycle traversal.
func sccToCycle(scc []string, graph termGraph) TermCycle {
	if len(scc) == 1 {
		name := scc[0]
		return TermCycle{
			Path:    []string{name, name},
			Message: fmt.Sprintf("term references itself: %s → %s", name, name),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return TermCycle{
		Path:    path,
		Message: fmt.Sprintf("terms reference each other in a cycle: %s", strings.Join(path, " → ")),
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the smallest name in the SCC, follow edges to other SCC
// members, continue until we return to start node.
func reconstructCyclePath(scc []string, graph termGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
