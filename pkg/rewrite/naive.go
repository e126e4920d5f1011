package rewrite

import (
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

// CompileNaive emits one minus term per non-direct simple route from
// source to merge, requiring the route's interior nodes. Routes sharing
// interior nodes are each subtracted in full, so overlapping journeys are
// removed more than once. Kept as the baseline the subset construction
// is measured against.
func CompileNaive(g *graph.Graph, source, merge string, maxRoutes int) *Compilation {
	if maxRoutes <= 0 {
		maxRoutes = maxSeparatorPaths
	}
	paths, truncated := g.SimplePaths(source, merge, maxRoutes)

	out := &Compilation{Status: query.StatusExact}
	if truncated {
		out.Status = query.StatusDegradedCompilation
	}
	for _, p := range paths {
		if len(p) == 2 {
			continue // the direct transition itself
		}
		interior := append([]string(nil), p[1:len(p)-1]...)
		out.Terms = append(out.Terms, query.SignedTerm{
			Coefficient: query.Minus,
			Constraints: query.ConstraintSet{Visited: dedupe(interior)},
		})
	}
	out.Diagnostics = query.Diagnostics{Terms: len(out.Terms)}
	return out
}
