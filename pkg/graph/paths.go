package graph

// SimplePaths enumerates every simple path from `from` to `to` using an
// explicit-stack DFS, so pathological graphs cannot blow the call stack.
// Enumeration stops after maxPaths results; the second return value reports
// whether the enumeration was truncated. This is intended for local scopes
// (one branch to its merge point), never for whole-graph search.
func (g *Graph) SimplePaths(from, to string, maxPaths int) ([][]string, bool) {
	if !g.HasNode(from) || !g.HasNode(to) {
		return nil, false
	}

	type frame struct {
		node string
		next int // index of the next successor to try
	}

	var paths [][]string
	stack := []frame{{node: from}}
	onPath := map[string]bool{from: true}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		if top.node == to {
			path := make([]string, len(stack))
			for i, f := range stack {
				path[i] = f.node
			}
			paths = append(paths, path)
			if maxPaths > 0 && len(paths) >= maxPaths {
				return paths, true
			}
			onPath[top.node] = false
			stack = stack[:len(stack)-1]
			continue
		}

		succ := g.Successors(top.node)
		advanced := false
		for top.next < len(succ) {
			n := succ[top.next]
			top.next++
			if onPath[n] {
				continue
			}
			onPath[n] = true
			stack = append(stack, frame{node: n})
			advanced = true
			break
		}
		if !advanced {
			onPath[top.node] = false
			stack = stack[:len(stack)-1]
		}
	}
	return paths, false
}
