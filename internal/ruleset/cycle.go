package ruleset

import (
	"fmt"
	"slices"
	"strings"
)

// CycleWarning reports rulesets that can reach themselves through nested
// ruleset references.
//
// Cycles are warnings, not errors: a recursive ruleset whose guards depend
// on dynamic facts may stop on its own. At run time the interpreter's depth
// limit bounds every cycle.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
}

// AnalyzeCycles finds reference cycles between the rulesets of lib.
//
// The algorithm:
//  1. Build a ruleset → nested ruleset graph from then clauses
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each component with more than one member, or a self-reference
//
// Nodes are visited in library order, so the result is deterministic.
// An acyclic library returns an empty list.
func AnalyzeCycles(lib *Library) []CycleWarning {
	names := lib.Names()
	graph := make(referenceGraph, len(names))
	for _, name := range names {
		def, _ := lib.Get(name)
		graph[name] = []string{}
		for _, st := range def.Statements {
			for _, ref := range nestedRefs(st) {
				if !slices.Contains(graph[name], ref) {
					graph[name] = append(graph[name], ref)
				}
			}
		}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(names, graph) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			warnings = append(warnings, cycleWarning(scc, graph))
		}
	}
	return warnings
}

// referenceGraph maps a ruleset to the rulesets it evaluates.
type referenceGraph map[string][]string

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(order []string, graph referenceGraph) [][]string {
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
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

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

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cycleWarning walks one cycle through the component, starting from the
// member that comes first in the graph's library order.
func cycleWarning(scc []string, graph referenceGraph) CycleWarning {
	if len(scc) == 1 {
		name := scc[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("ruleset %s evaluates itself", name),
		}
	}

	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := scc[len(scc)-1] // first visited
	path := []string{start}
	visited := map[string]bool{start: true}
	for current := start; ; {
		next := ""
		for _, w := range graph[current] {
			if members[w] && (!visited[w] || w == start) {
				next = w
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
		visited[next] = true
		current = next
	}

	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("rulesets form a cycle: %s", strings.Join(path, " -> ")),
	}
}
