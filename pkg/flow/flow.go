// Package flow distributes synthetic journey volume over a funnel graph
// and evaluates constraint sets against the resulting per-path units.
// It exists to validate compilations: a signed term list is correct when
// the reconstructed count matches the direct-transition units.
package flow

import (
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

// PathFlow is one complete journey and the volume units it carries.
type PathFlow struct {
	Path  []string
	Units float64
}

// Distribute injects total units at source and splits each node's
// incoming volume evenly across its out-edges, yielding one PathFlow per
// complete journey. The walk keeps its own frame stack, so path depth is
// bounded by memory rather than goroutine stack. The graph must be acyclic.
func Distribute(g *graph.Graph, source string, total float64) []PathFlow {
	if !g.HasNode(source) {
		return nil
	}

	type frame struct {
		node  string
		next  int // index of the next successor to try
		units float64
	}

	var flows []PathFlow
	stack := []frame{{node: source, units: total}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		succ := g.Successors(top.node)

		if len(succ) == 0 {
			path := make([]string, len(stack))
			for i, f := range stack {
				path[i] = f.node
			}
			flows = append(flows, PathFlow{Path: path, Units: top.units})
			stack = stack[:len(stack)-1]
			continue
		}

		if top.next < len(succ) {
			n := succ[top.next]
			top.next++
			stack = append(stack, frame{node: n, units: top.units / float64(len(succ))})
			continue
		}
		stack = stack[:len(stack)-1]
	}
	return flows
}

// Total sums the units of all flows.
func Total(flows []PathFlow) float64 {
	var sum float64
	for _, f := range flows {
		sum += f.Units
	}
	return sum
}

// EdgeUnits sums the units of journeys taking the from→to edge directly.
func EdgeUnits(flows []PathFlow, from, to string) float64 {
	var sum float64
	for _, f := range flows {
		for i := 0; i+1 < len(f.Path); i++ {
			if f.Path[i] == from && f.Path[i+1] == to {
				sum += f.Units
				break
			}
		}
	}
	return sum
}

// Matching sums the units of journeys that pass through from and later
// to while satisfying every literal of cs: all visited nodes present, no
// excluded node present, at least one member of each OR-group present.
// The signed terms of cs are not applied here.
func Matching(flows []PathFlow, from, to string, cs *query.ConstraintSet) float64 {
	var sum float64
	for _, f := range flows {
		if !ordered(f.Path, from, to) {
			continue
		}
		if cs != nil && !satisfies(f.Path, cs) {
			continue
		}
		sum += f.Units
	}
	return sum
}

// ApplyTerms reconstructs a direct-transition count: the unconstrained
// from→to volume plus each signed term's contribution.
func ApplyTerms(flows []PathFlow, from, to string, terms []query.SignedTerm) float64 {
	result := Matching(flows, from, to, nil)
	for _, t := range terms {
		result += float64(t.Coefficient) * Matching(flows, from, to, &t.Constraints)
	}
	return result
}

func ordered(path []string, from, to string) bool {
	fi, ti := -1, -1
	for i, n := range path {
		if n == from && fi == -1 {
			fi = i
		}
		if n == to {
			ti = i
		}
	}
	return fi != -1 && ti > fi
}

func satisfies(path []string, cs *query.ConstraintSet) bool {
	on := make(map[string]bool, len(path))
	for _, n := range path {
		on[n] = true
	}
	for _, v := range cs.Visited {
		if !on[v] {
			return false
		}
	}
	for _, x := range cs.Exclude {
		if on[x] {
			return false
		}
	}
	for _, grp := range cs.VisitedAny {
		hit := false
		for _, m := range grp {
			if on[m] {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
