// Package rewrite turns exclude constraints into signed sums of positive
// sub-queries for analytics providers that cannot express a native
// negation operator. The construction is inclusion-exclusion over the
// competing branches of a split point, pruned by reachability and shrunk
// by dominance elimination.
package rewrite

import (
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
)

// FindMerge locates the minimal downstream merge point of the branches
// leaving split. When the split's only successor is the kept target, the
// merge is the target itself. When the branches never reconverge the kept
// target is returned as a decision boundary rather than a true merge.
func FindMerge(g *graph.Graph, split, keptTarget string) string {
	succ := g.Successors(split)
	if len(succ) == 1 && succ[0] == keptTarget {
		return keptTarget
	}

	var common map[string]bool
	for _, hop := range succ {
		desc := g.Descendants(hop)
		if common == nil {
			common = desc
			continue
		}
		next := make(map[string]bool)
		for id := range common {
			if desc[id] {
				next[id] = true
			}
		}
		common = next
	}
	if len(common) == 0 {
		return keptTarget
	}

	merge := ""
	best := -1
	for id, pos := range g.TopoIndex() {
		if !common[id] {
			continue
		}
		if best == -1 || pos < best {
			best = pos
			merge = id
		}
	}
	if merge == "" {
		return keptTarget
	}
	return merge
}

// maxSeparatorPaths bounds the local path enumeration of FindSeparator.
// The scope is one branch to its merge, so fan-out stays small; hitting
// the bound falls back to the merge node, which is always a valid
// (if coarse) separator.
const maxSeparatorPaths = 512

// FindSeparator returns, for one competing branch, the earliest node every
// route from the branch's first hop to the merge must cross, excluding the
// split itself and anything already on the kept path before the merge.
// The merge node is the fallback when no candidate remains.
func FindSeparator(g *graph.Graph, split, branchHop, merge string, keptPath []string) string {
	paths, truncated := g.SimplePaths(branchHop, merge, maxSeparatorPaths)
	if truncated || len(paths) == 0 {
		return merge
	}

	common := map[string]bool{}
	for _, n := range paths[0] {
		common[n] = true
	}
	for _, p := range paths[1:] {
		onPath := map[string]bool{}
		for _, n := range p {
			onPath[n] = true
		}
		for n := range common {
			if !onPath[n] {
				delete(common, n)
			}
		}
	}

	delete(common, split)
	delete(common, merge)
	for _, n := range keptPath {
		if n == merge {
			break
		}
		delete(common, n)
	}

	sep := ""
	best := -1
	for id, pos := range g.TopoIndex() {
		if !common[id] {
			continue
		}
		if best == -1 || pos < best {
			best = pos
			sep = id
		}
	}
	if sep == "" {
		return merge
	}
	return sep
}
