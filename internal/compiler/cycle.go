package compiler

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/nature/internal/meta"
	"github.com/roach88/nature/internal/model"
)

// Cycle warning levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// CycleWarning represents a cycle among compiled definitions.
//
// Relation cycles are warnings, not errors, because they may be intentional:
//   - A state machine routing an instance back to its own meta
//   - Retry loops guarded by a selector
//
// Master and sub-meta cycles are errors: the meta cache rejects them at
// resolution time.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["B:a:1", "B:b:1", "B:a:1"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "error", "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis on compiled definitions.
//
// Two graphs are checked:
//  1. Meta references: each meta points at its master and its sub-metas.
//     Any cycle is reported at LevelError.
//  2. Active relations: from -> to. A relation from a meta to itself is
//     reported at LevelInfo, longer cycles at LevelWarning.
//
// Strongly connected components are found with Tarjan's algorithm. Nodes
// are visited in sorted order so the result is deterministic.
//
// Malformed rows are ignored; Validate reports them.
func AnalyzeCycles(metas []model.RawMeta, rels []model.RawRelation) []CycleWarning {
	warnings := []CycleWarning{}

	refs := buildReferenceGraph(metas)
	for _, scc := range tarjanSCC(refs) {
		if len(scc) > 1 || hasSelfLoop(scc[0], refs) {
			path := reconstructCyclePath(scc, refs)
			warnings = append(warnings, CycleWarning{
				Path:    path,
				Message: fmt.Sprintf("Meta reference cycle: %s", strings.Join(path, " -> ")),
				Level:   LevelError,
			})
		}
	}

	flows := buildRelationGraph(rels)
	for _, scc := range tarjanSCC(flows) {
		switch {
		case len(scc) > 1:
			path := reconstructCyclePath(scc, flows)
			warnings = append(warnings, CycleWarning{
				Path:    path,
				Message: fmt.Sprintf("Potential routing cycle: %s", strings.Join(path, " -> ")),
				Level:   LevelWarning,
			})
		case hasSelfLoop(scc[0], flows):
			id := scc[0]
			warnings = append(warnings, CycleWarning{
				Path:    []string{id, id},
				Message: fmt.Sprintf("Self-routing relation: %s -> %s", id, id),
				Level:   LevelInfo,
			})
		}
	}

	return warnings
}

// dependencyGraph maps a canonical meta id to the ids it points at.
type dependencyGraph map[string][]string

func (g dependencyGraph) addEdge(from, to string) {
	if _, ok := g[to]; !ok {
		g[to] = []string{}
	}
	if !slices.Contains(g[from], to) {
		g[from] = append(g[from], to)
	}
}

// buildReferenceGraph links each meta to its master and sub-metas.
func buildReferenceGraph(metas []model.RawMeta) dependencyGraph {
	graph := make(dependencyGraph)
	for _, raw := range metas {
		m, err := meta.Parse(raw.MetaString())
		if err != nil {
			continue
		}
		id := m.String()
		if _, ok := graph[id]; !ok {
			graph[id] = []string{}
		}

		var setting model.MetaSetting
		if strings.TrimSpace(raw.Config) == "" || json.Unmarshal([]byte(raw.Config), &setting) != nil {
			continue
		}
		refs := append([]string{setting.Master}, setting.MultiMeta...)
		for _, ref := range refs {
			if ref == "" {
				continue
			}
			target, err := meta.Parse(ref)
			if err != nil {
				continue
			}
			graph.addEdge(id, target.String())
		}
	}
	return graph
}

// buildRelationGraph links the from and to metas of every active relation.
func buildRelationGraph(rels []model.RawRelation) dependencyGraph {
	graph := make(dependencyGraph)
	for _, r := range rels {
		if r.Flag != model.RelationActive {
			continue
		}
		from, err := meta.Parse(r.From)
		if err != nil {
			continue
		}
		to, err := meta.Parse(r.To)
		if err != nil {
			continue
		}
		if _, ok := graph[from.String()]; !ok {
			graph[from.String()] = []string{}
		}
		graph.addEdge(from.String(), to.String())
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, each sorted. Single-node SCCs without self-loops
// are NOT cycles.
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

		// Root node: pop the stack and emit an SCC
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
			slices.Sort(scc)
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

	slices.SortFunc(sccs, func(a, b []string) int {
		return strings.Compare(a[0], b[0])
	})
	return sccs
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && neighbor != current && (!visited[neighbor] || neighbor == start) {
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
