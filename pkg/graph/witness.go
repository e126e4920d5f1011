package graph

import "sort"

// Budget caps the number of reachability queries a compilation may perform.
// Every BFS leg spends one unit. A nil Budget never limits.
type Budget struct {
	Limit int
	Used  int
}

// NewBudget creates a budget of `limit` reachability checks.
// A non-positive limit means the budget is already exhausted.
func NewBudget(limit int) *Budget {
	return &Budget{Limit: limit}
}

// Spend consumes one check. It returns false when the budget is exhausted,
// in which case the check must not run.
func (b *Budget) Spend() bool {
	if b == nil {
		return true
	}
	if b.Used >= b.Limit {
		return false
	}
	b.Used++
	return true
}

// Exhausted reports whether no checks remain.
func (b *Budget) Exhausted() bool {
	return b != nil && b.Used >= b.Limit
}

// WitnessQuery describes a constrained reachability question: does any
// simple path exist from From to To that visits every Require node, visits
// at least one node of every RequireAny group, avoids every Avoid node, and
// never traverses WithoutEdge?
type WitnessQuery struct {
	From        string
	To          string
	Require     []string
	RequireAny  [][]string
	Avoid       map[string]bool
	WithoutEdge *Edge
}

// FindWitness searches for a path satisfying q. Required nodes are threaded
// in topological order, so each waypoint-to-waypoint leg is a single bounded
// BFS rather than a path enumeration. Returns the witness path and whether
// one was found; when the budget runs out the search reports not-found and
// the caller distinguishes exhaustion via budget.Exhausted().
func (g *Graph) FindWitness(q WitnessQuery, budget *Budget) ([]string, bool) {
	if !g.HasNode(q.From) || !g.HasNode(q.To) {
		return nil, false
	}
	if q.Avoid[q.From] || q.Avoid[q.To] {
		return nil, false
	}
	for _, r := range q.Require {
		if q.Avoid[r] {
			return nil, false
		}
	}

	idx := g.TopoIndex()
	require := append([]string(nil), q.Require...)
	sort.Strings(require) // stable input before topo sort
	sort.SliceStable(require, func(i, j int) bool { return idx[require[i]] < idx[require[j]] })

	return g.chooseGroupMembers(q, idx, require, 0, budget)
}

// chooseGroupMembers assigns at most one extra waypoint per RequireAny group
// and backtracks across member choices, so a commitment made for one group
// never forecloses a later one. A group can also be satisfied incidentally
// by the threaded path, which is why the no-waypoint branch comes first and
// every group is re-verified against the final path.
func (g *Graph) chooseGroupMembers(q WitnessQuery, idx map[string]int, require []string, group int, budget *Budget) ([]string, bool) {
	if group == len(q.RequireAny) {
		path, ok := g.threadWaypoints(q, require, budget)
		if !ok {
			return nil, false
		}
		for _, grp := range q.RequireAny {
			if !pathContainsAny(path, grp) {
				return nil, false
			}
		}
		return path, true
	}

	if path, ok := g.chooseGroupMembers(q, idx, require, group+1, budget); ok {
		return path, true
	}
	if budget.Exhausted() {
		return nil, false
	}

	members := append([]string(nil), q.RequireAny[group]...)
	sort.Strings(members)
	for _, m := range members {
		if q.Avoid[m] || !g.HasNode(m) {
			continue
		}
		candidate := append(append([]string(nil), require...), m)
		sort.SliceStable(candidate, func(i, j int) bool { return idx[candidate[i]] < idx[candidate[j]] })
		if path, ok := g.chooseGroupMembers(q, idx, candidate, group+1, budget); ok {
			return path, true
		}
		if budget.Exhausted() {
			return nil, false
		}
	}
	return nil, false
}

// threadWaypoints connects From → require... → To with one BFS leg per hop.
func (g *Graph) threadWaypoints(q WitnessQuery, require []string, budget *Budget) ([]string, bool) {
	waypoints := make([]string, 0, len(require)+2)
	waypoints = append(waypoints, q.From)
	for _, r := range require {
		if r == q.From || r == q.To {
			continue
		}
		waypoints = append(waypoints, r)
	}
	waypoints = append(waypoints, q.To)

	path := []string{q.From}
	for i := 1; i < len(waypoints); i++ {
		leg, ok := g.bfsLeg(waypoints[i-1], waypoints[i], q.Avoid, q.WithoutEdge, budget)
		if !ok {
			return nil, false
		}
		path = append(path, leg[1:]...)
	}
	return path, true
}

// bfsLeg finds one shortest path from src to dst honoring the avoid set.
// Costs exactly one budget unit.
func (g *Graph) bfsLeg(src, dst string, avoid map[string]bool, banned *Edge, budget *Budget) ([]string, bool) {
	if !budget.Spend() {
		return nil, false
	}
	if src == dst {
		return []string{src}, true
	}
	parent := map[string]string{src: src}
	queue := []string{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Successors(cur) {
			if banned != nil && cur == banned.From && n == banned.To {
				continue
			}
			if avoid[n] {
				continue
			}
			if _, seen := parent[n]; seen {
				continue
			}
			parent[n] = cur
			if n == dst {
				var leg []string
				for at := dst; ; at = parent[at] {
					leg = append(leg, at)
					if at == src {
						break
					}
				}
				for i, j := 0, len(leg)-1; i < j; i, j = i+1, j-1 {
					leg[i], leg[j] = leg[j], leg[i]
				}
				return leg, true
			}
			queue = append(queue, n)
		}
	}
	return nil, false
}

// FirstDivergence returns the first node at which `path` departs from
// `reference`. The boolean is false when path is a prefix of reference
// (no divergence point exists).
func FirstDivergence(reference, path []string) (string, bool) {
	i := 0
	for i < len(reference) && i < len(path) && reference[i] == path[i] {
		i++
	}
	if i < len(path) {
		return path[i], true
	}
	return "", false
}

func pathContainsAny(path []string, group []string) bool {
	for _, n := range path {
		for _, m := range group {
			if n == m {
				return true
			}
		}
	}
	return false
}
