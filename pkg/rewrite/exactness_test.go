package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjbm2/dagnet-sub000/pkg/flow"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
)

// exactnessFixture pairs a funnel shape with the anchor edge whose direct
// traffic the compiled terms must reconstruct.
type exactnessFixture struct {
	name   string
	edges  [][2]string
	from   string
	to     string
	direct float64
	total  float64
}

func buildGraph(edges [][2]string) *graph.Graph {
	g := graph.NewGraph()
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestCompiledTermsReconstructDirectTraffic(t *testing.T) {
	fixtures := []exactnessFixture{
		{
			name:   "single bypass",
			edges:  [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}},
			from:   "a",
			to:     "c",
			direct: 500,
			total:  1000,
		},
		{
			name: "diamond with direct edge",
			edges: [][2]string{
				{"a", "b"}, {"a", "c"}, {"a", "d"},
				{"b", "d"}, {"c", "d"},
			},
			from:   "a",
			to:     "d",
			direct: 300,
			total:  900,
		},
		{
			name: "overlapping interiors",
			edges: [][2]string{
				{"a", "m"}, {"a", "b"}, {"b", "m"},
				{"a", "f"}, {"f", "b"}, {"f", "g"},
				{"a", "e"}, {"e", "b"}, {"e", "g"},
				{"a", "d"}, {"d", "m"}, {"d", "g"}, {"d", "e"},
				{"g", "m"},
			},
			from:   "a",
			to:     "m",
			direct: 200,
			total:  1000,
		},
	}

	for _, fx := range fixtures {
		t.Run(fx.name, func(t *testing.T) {
			g := buildGraph(fx.edges)
			merge := FindMerge(g, fx.from, fx.to)

			var hops []string
			reach := g.Ancestors(merge)
			for _, succ := range g.Successors(fx.from) {
				if succ != fx.to && reach[succ] {
					hops = append(hops, succ)
				}
			}
			require.NotEmpty(t, hops)

			comp := CompileHops(g, fx.from, fx.to, merge, hops, 0)
			require.True(t, comp.Status.Exact(), "status = %s", comp.Status)
			assert.NotEmpty(t, comp.Terms)

			flows := flow.Distribute(g, fx.from, fx.total)
			assert.InDelta(t, fx.total, flow.Total(flows), 1e-6)
			assert.InDelta(t, fx.direct, flow.EdgeUnits(flows, fx.from, fx.to), 1e-6)

			recon := flow.ApplyTerms(flows, fx.from, fx.to, comp.Terms)
			assert.InDelta(t, fx.direct, recon, 1e-6)
		})
	}
}
