package compose

import (
	"sort"

	"github.com/souissim/gridpath/internal/module"
)

// dependencyGraph maps module name → names it depends on.
type dependencyGraph map[string][]string

// order returns the modules in a dependency-respecting order.
//
// The sort is stable: among modules whose dependencies are satisfied, the
// one requested first comes first, so a requested order that already
// respects dependencies is kept as is. Every dependency must be present in
// mods. Cycles are reported with their path.
func order(mods []module.Module) ([]module.Module, error) {
	byName := make(map[string]module.Module, len(mods))
	graph := make(dependencyGraph, len(mods))
	for _, m := range mods {
		byName[m.Name()] = m
	}
	for _, m := range mods {
		deps := m.Dependencies()
		for _, d := range deps {
			if _, ok := byName[d]; !ok {
				return nil, &CompositionError{Code: ErrCodeMissingDependency, Module: m.Name(), Entity: d}
			}
		}
		graph[m.Name()] = deps
	}

	if cycle := findCycle(graph); cycle != nil {
		return nil, &CompositionError{Code: ErrCodeCycle, Module: cycle[0], Path: cycle}
	}

	done := make(map[string]bool, len(mods))
	out := make([]module.Module, 0, len(mods))
	for len(out) < len(mods) {
		// Pick the earliest requested module whose dependencies are done.
		next := ""
		for _, m := range mods {
			name := m.Name()
			if done[name] {
				continue
			}
			ready := true
			for _, d := range graph[name] {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				next = name
				break
			}
		}
		done[next] = true
		out = append(out, byName[next])
	}
	return out, nil
}

// findCycle returns one dependency cycle, or nil for a DAG. The path repeats
// its first module at the end.
func findCycle(graph dependencyGraph) []string {
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			return cyclePath(scc, graph)
		}
	}
	return nil
}

func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in name order so results are deterministic.
func tarjanSCC(graph dependencyGraph) [][]string {
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
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// cyclePath returns the shortest cycle through the SCC's first member.
func cyclePath(scc []string, graph dependencyGraph) []string {
	in := make(map[string]bool, len(scc))
	for _, n := range scc {
		in[n] = true
	}

	start := scc[0]
	parent := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range graph[v] {
			if w == start {
				var rev []string
				for n := v; n != ""; n = parent[n] {
					rev = append(rev, n)
				}
				path := make([]string, 0, len(rev)+1)
				for i := len(rev) - 1; i >= 0; i-- {
					path = append(path, rev[i])
				}
				return append(path, start)
			}
			if _, seen := parent[w]; !seen && in[w] {
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}
	return []string{start, start}
}
