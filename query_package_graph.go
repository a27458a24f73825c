package garnet

import (
	"path/filepath"
	"sort"
)

// DirectoryGraph is the directory-to-directory require graph, aggregated
// from unit-level requires.
type DirectoryGraph struct {
	Directories []DirectoryNode
	Edges       []DirectoryEdge
}

// DirectoryNode is a directory holding published units.
type DirectoryNode struct {
	Name      string
	UnitCount int
}

// DirectoryEdge is a dependency between two directories with the number of
// unit-level requires that contribute to it.
type DirectoryEdge struct {
	From         string
	To           string
	RequireCount int
}

// DirectoryGraph aggregates the resolved requires of every published unit
// by the directory of the requiring and the required unit.
func (q *QueryBuilder) DirectoryGraph() *DirectoryGraph {
	counts := map[string]int{}
	type edgeKey struct{ from, to string }
	edges := map[edgeKey]int{}
	for _, u := range q.engine.Units() {
		from := filepath.Dir(u.ID)
		counts[from]++
		for _, imp := range u.Imports {
			edges[edgeKey{from: from, to: filepath.Dir(imp)}]++
		}
	}

	g := &DirectoryGraph{Directories: []DirectoryNode{}, Edges: []DirectoryEdge{}}
	for name, n := range counts {
		g.Directories = append(g.Directories, DirectoryNode{Name: name, UnitCount: n})
	}
	sort.Slice(g.Directories, func(i, j int) bool { return g.Directories[i].Name < g.Directories[j].Name })
	for k, n := range edges {
		g.Edges = append(g.Edges, DirectoryEdge{From: k.from, To: k.to, RequireCount: n})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	return g
}

// CircularRequires detects require cycles between published units using
// Tarjan's strongly connected components algorithm. Each cycle lists unit
// ids with the first repeated at the end. It returns an empty list, not
// nil, when there are no cycles.
func (q *QueryBuilder) CircularRequires() [][]string {
	units := q.engine.Units()
	adj := map[string][]string{}
	selfLoops := map[string]bool{}
	for _, u := range units {
		for _, imp := range u.Imports {
			if imp == u.ID {
				selfLoops[u.ID] = true
			}
			adj[u.ID] = append(adj[u.ID], imp)
		}
	}

	type nodeInfo struct {
		index   int
		lowlink int
		onStack bool
	}
	info := map[string]*nodeInfo{}
	index := 0
	var stack []string
	result := [][]string{}

	var strongconnect func(v string)
	strongconnect = func(v string) {
		ni := &nodeInfo{index: index, lowlink: index, onStack: true}
		info[v] = ni
		index++
		stack = append(stack, v)

		for _, w := range adj[v] {
			wInfo, visited := info[w]
			if !visited {
				strongconnect(w)
				ni.lowlink = min(ni.lowlink, info[w].lowlink)
			} else if wInfo.onStack {
				ni.lowlink = min(ni.lowlink, wInfo.index)
			}
		}

		if ni.lowlink != ni.index {
			return
		}
		var scc []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			info[w].onStack = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		if len(scc) > 1 || selfLoops[scc[0]] {
			// Tarjan pops in reverse.
			for i, j := 0, len(scc)-1; i < j; i, j = i+1, j-1 {
				scc[i], scc[j] = scc[j], scc[i]
			}
			result = append(result, append(scc, scc[0]))
		}
	}

	for _, u := range units {
		if _, visited := info[u.ID]; !visited {
			strongconnect(u.ID)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i][0] < result[j][0] })
	return result
}
