package graph

import "sort"

// Descendants returns the closed descendant set of id: id itself plus every
// node reachable from it.
func (g *Graph) Descendants(id string) map[string]bool {
	return g.closure(id, g.Successors)
}

// Ancestors returns the closed ancestor set of id: id itself plus every node
// that can reach it.
func (g *Graph) Ancestors(id string) map[string]bool {
	return g.closure(id, g.Predecessors)
}

func (g *Graph) closure(id string, next func(string) []string) map[string]bool {
	seen := map[string]bool{}
	if !g.HasNode(id) {
		return seen
	}
	seen[id] = true
	frontier := []string{id}
	for len(frontier) > 0 {
		cur := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]
		for _, n := range next(cur) {
			if !seen[n] {
				seen[n] = true
				frontier = append(frontier, n)
			}
		}
	}
	return seen
}

// TopoOrder returns a topological ordering of all nodes (Kahn's algorithm),
// breaking ties lexicographically so the order is deterministic. Nodes on
// cycles, if any, are appended at the end in lexicographic order.
func (g *Graph) TopoOrder() []string {
	indegree := make(map[string]int, len(g.Nodes))
	for id := range g.Nodes {
		indegree[id] = len(g.Predecessors(id))
	}

	var ready []string
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.Nodes))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)
		for _, n := range g.Successors(cur) {
			indegree[n]--
			if indegree[n] == 0 {
				i := sort.SearchStrings(ready, n)
				ready = append(ready, "")
				copy(ready[i+1:], ready[i:])
				ready[i] = n
			}
		}
	}

	if len(order) < len(g.Nodes) {
		// Cycle remainder: emit deterministically rather than dropping.
		var rest []string
		emitted := make(map[string]bool, len(order))
		for _, id := range order {
			emitted[id] = true
		}
		for id := range g.Nodes {
			if !emitted[id] {
				rest = append(rest, id)
			}
		}
		sort.Strings(rest)
		order = append(order, rest...)
	}
	return order
}

// TopoIndex returns the position of every node in TopoOrder.
func (g *Graph) TopoIndex() map[string]int {
	order := g.TopoOrder()
	idx := make(map[string]int, len(order))
	for i, id := range order {
		idx[id] = i
	}
	return idx
}

// Span returns the closed set of nodes lying on some route from `from` to
// `to`: descendants of `from` intersected with ancestors of `to`. This is
// the literal universe for discriminating the from→to transition.
func (g *Graph) Span(from, to string) map[string]bool {
	desc := g.Descendants(from)
	anc := g.Ancestors(to)
	span := make(map[string]bool)
	for id := range desc {
		if anc[id] {
			span[id] = true
		}
	}
	return span
}
