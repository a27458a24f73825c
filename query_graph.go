package garnet

import (
	"fmt"

	"github.com/jward/garnet/internal/graph"
)

// RequireGraph is the transitive require graph rooted at a unit.
type RequireGraph struct {
	Root  string
	Nodes []RequireNode
	Edges []RequireEdge
	Depth int // actual max depth reached (may be < maxDepth if graph is shallow)
}

// RequireNode is a unit in the graph with its distance from the root.
type RequireNode struct {
	Unit  string
	Depth int // BFS depth from root (0 = root itself)
	// Missing is set for require targets that were not found.
	Missing bool
}

// RequireEdge is one require from a unit.
type RequireEdge struct {
	From string
	To   string
}

const maxGraphDepth = 100

// TransitiveRequires returns every unit reachable from file through
// requires, up to maxDepth. maxDepth of 0 returns only the root; it is
// capped at 100. Unresolved targets appear as missing leaves.
func (q *QueryBuilder) TransitiveRequires(file string, maxDepth int) (*RequireGraph, error) {
	return q.walkRequires(file, maxDepth, func(u *graph.Unit) ([]string, []string) {
		return u.Imports, u.Unresolved
	})
}

// TransitiveDependents returns every published unit that reaches file
// through requires, up to maxDepth. Edges point from the requiring unit.
func (q *QueryBuilder) TransitiveDependents(file string, maxDepth int) (*RequireGraph, error) {
	reverse := make(map[string][]string)
	for _, u := range q.engine.Units() {
		for _, imp := range u.Imports {
			reverse[imp] = append(reverse[imp], u.ID)
		}
	}
	g, err := q.walkRequires(file, maxDepth, func(u *graph.Unit) ([]string, []string) {
		return reverse[u.ID], nil
	})
	if err != nil {
		return nil, err
	}
	for i, e := range g.Edges {
		g.Edges[i] = RequireEdge{From: e.To, To: e.From}
	}
	return g, nil
}

func (q *QueryBuilder) walkRequires(file string, maxDepth int, next func(*graph.Unit) (found, missing []string)) (*RequireGraph, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("require graph: maxDepth must be non-negative, got %d", maxDepth)
	}
	maxDepth = min(maxDepth, maxGraphDepth)
	if _, err := q.unit(file); err != nil {
		return nil, fmt.Errorf("require graph: %w", err)
	}

	g := &RequireGraph{
		Root:  file,
		Nodes: []RequireNode{{Unit: file}},
		Edges: []RequireEdge{},
	}
	visited := map[string]bool{file: true}
	frontier := []string{file}
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var nextFrontier []string
		for _, id := range frontier {
			u, ok := q.lookup.Unit(id)
			if !ok {
				continue
			}
			found, missing := next(u)
			for _, to := range found {
				g.Edges = append(g.Edges, RequireEdge{From: id, To: to})
				if !visited[to] {
					visited[to] = true
					g.Nodes = append(g.Nodes, RequireNode{Unit: to, Depth: depth})
					nextFrontier = append(nextFrontier, to)
					g.Depth = depth
				}
			}
			for _, to := range missing {
				g.Edges = append(g.Edges, RequireEdge{From: id, To: to})
				if !visited[to] {
					visited[to] = true
					g.Nodes = append(g.Nodes, RequireNode{Unit: to, Depth: depth, Missing: true})
					g.Depth = depth
				}
			}
		}
		frontier = nextFrontier
	}
	return g, nil
}
