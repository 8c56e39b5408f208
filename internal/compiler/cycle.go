package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/qcase/internal/ir"
)

// CycleWarning represents a cycle in the delete cascade graph.
//
// Cycles are warnings, not errors: a cascade only follows rows that exist,
// so it ends once a pass deletes nothing. They are still worth a look since
// a cyclic cascade can remove far more than the caller expects.
type CycleWarning struct {
	Path    []string `json:"path"` // e.g. ["users", "posts", "users"]
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeCycles performs static cycle analysis on the schema's associations.
//
// Every HAS_* descriptor, nested ones included, adds a table → table edge;
// BELONGS_TO never cascades. Each strongly connected component with more
// than one table, or a table pointing at itself, becomes a warning. Tables
// are visited in name order so the output is stable, and an acyclic schema
// yields an empty list.
func AnalyzeCycles(s *ir.Schema) []CycleWarning {
	graph := buildCascadeGraph(s)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, comp := range tarjanSCC(graph) {
		if len(comp) > 1 || selfLoop(comp[0], graph) {
			warnings = append(warnings, cycleWarning(comp, graph))
		}
	}
	sort.Slice(warnings, func(i, j int) bool {
		return strings.Join(warnings[i].Path, ",") < strings.Join(warnings[j].Path, ",")
	})
	return warnings
}

// dependencyGraph maps table → tables a delete cascades into.
type dependencyGraph map[string][]string

func buildCascadeGraph(s *ir.Schema) dependencyGraph {
	graph := make(dependencyGraph)
	edges := make(map[string]map[string]bool)

	var walk func(owner string, assocs []ir.Assoc)
	walk = func(owner string, assocs []ir.Assoc) {
		if graph[owner] == nil {
			graph[owner] = []string{}
		}
		for _, a := range assocs {
			if a.Type == ir.BelongsTo {
				continue
			}
			target := a.Target()
			if edges[owner] == nil {
				edges[owner] = make(map[string]bool)
			}
			if !edges[owner][target] {
				edges[owner][target] = true
				graph[owner] = append(graph[owner], target)
			}
			if graph[target] == nil {
				graph[target] = []string{}
			}
			walk(target, a.Assocs)
		}
	}
	for _, name := range s.TableNames() {
		walk(name, s.Tables[name].Assocs)
	}

	for node := range graph {
		sort.Strings(graph[node])
	}
	return graph
}

func selfLoop(node string, graph dependencyGraph) bool {
	for _, to := range graph[node] {
		if to == node {
			return true
		}
	}
	return false
}

// sccFinder holds Tarjan's bookkeeping over one graph. Components come out
// in completion order with their members sorted.
type sccFinder struct {
	graph   dependencyGraph
	next    int
	order   map[string]int
	low     map[string]int
	pending []string
	held    map[string]bool
	found   [][]string
}

func tarjanSCC(graph dependencyGraph) [][]string {
	f := &sccFinder{
		graph: graph,
		order: make(map[string]int),
		low:   make(map[string]int),
		held:  make(map[string]bool),
	}

	roots := make([]string, 0, len(graph))
	for name := range graph {
		roots = append(roots, name)
	}
	sort.Strings(roots)
	for _, name := range roots {
		if _, seen := f.order[name]; !seen {
			f.visit(name)
		}
	}
	return f.found
}

func (f *sccFinder) visit(v string) {
	f.order[v], f.low[v] = f.next, f.next
	f.next++
	f.pending = append(f.pending, v)
	f.held[v] = true

	for _, w := range f.graph[v] {
		if _, seen := f.order[w]; !seen {
			f.visit(w)
			f.low[v] = min(f.low[v], f.low[w])
		} else if f.held[w] {
			f.low[v] = min(f.low[v], f.order[w])
		}
	}
	if f.low[v] != f.order[v] {
		return
	}

	// v roots a component
	var comp []string
	for top := ""; top != v; {
		top = f.pending[len(f.pending)-1]
		f.pending = f.pending[:len(f.pending)-1]
		f.held[top] = false
		comp = append(comp, top)
	}
	sort.Strings(comp)
	f.found = append(f.found, comp)
}

func cycleWarning(comp []string, graph dependencyGraph) CycleWarning {
	if len(comp) == 1 {
		name := comp[0]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-referencing cascade detected: %s → %s", name, name),
			Level:   "warning",
		}
	}

	path := cyclePath(comp, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Cascade cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// cyclePath walks a component from its first member, always taking the first
// unvisited member edge, until it gets back to the start.
func cyclePath(comp []string, graph dependencyGraph) []string {
	if len(comp) == 0 {
		return []string{}
	}
	member := make(map[string]bool, len(comp))
	for _, name := range comp {
		member[name] = true
	}

	start := comp[0]
	path := []string{start}
	seen := map[string]bool{start: true}
	for at := start; ; {
		step := ""
		for _, to := range graph[at] {
			if member[to] && (to == start || !seen[to]) {
				step = to
				break
			}
		}
		if step == "" {
			return path
		}
		path = append(path, step)
		if step == start {
			return path
		}
		seen[step] = true
		at = step
	}
}
