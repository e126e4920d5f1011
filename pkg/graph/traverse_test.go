package graph

import (
	"encoding/json"
	"reflect"
	"testing"
)

func buildDiamond() *Graph {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")
	return g
}

func TestDescendantsAndAncestors(t *testing.T) {
	g := buildDiamond()

	desc := g.Descendants("a")
	for _, id := range []string{"a", "b", "c", "d"} {
		if !desc[id] {
			t.Errorf("Descendants(a) missing %q", id)
		}
	}

	anc := g.Ancestors("d")
	for _, id := range []string{"a", "b", "c", "d"} {
		if !anc[id] {
			t.Errorf("Ancestors(d) missing %q", id)
		}
	}

	if got := g.Ancestors("b"); got["c"] {
		t.Errorf("Ancestors(b) must not contain sibling c")
	}
	if got := g.Descendants("b"); got["c"] {
		t.Errorf("Descendants(b) must not contain sibling c")
	}
}

func TestTopoOrderDeterministic(t *testing.T) {
	g := buildDiamond()
	want := []string{"a", "b", "c", "d"}
	for i := 0; i < 5; i++ {
		if got := g.TopoOrder(); !reflect.DeepEqual(got, want) {
			t.Fatalf("TopoOrder = %v, want %v", got, want)
		}
	}
}

func TestTopoOrderCycleDoesNotDropNodes(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "b") // cycle b<->c

	order := g.TopoOrder()
	if len(order) != 3 {
		t.Fatalf("expected all 3 nodes in order, got %v", order)
	}
}

func TestSpan(t *testing.T) {
	g := buildDiamond()
	g.AddEdge("x", "a") // upstream of the span
	g.AddEdge("d", "y") // downstream of the span

	span := g.Span("a", "d")
	for _, id := range []string{"a", "b", "c", "d"} {
		if !span[id] {
			t.Errorf("Span(a,d) missing %q", id)
		}
	}
	if span["x"] || span["y"] {
		t.Errorf("Span(a,d) must exclude x and y, got %v", span)
	}
}

func TestGraphJSONRoundTrip(t *testing.T) {
	g := buildDiamond()
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Graph
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if !back.HasEdge("a", "b") || !back.HasEdge("c", "d") {
		t.Fatalf("adjacency not rebuilt after decode")
	}
	if got := back.Successors("a"); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("Successors(a) = %v after round trip", got)
	}
}

func TestSimplePaths(t *testing.T) {
	g := buildDiamond()
	paths, truncated := g.SimplePaths("a", "d", 0)
	if truncated {
		t.Fatalf("unexpected truncation")
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths a->d, got %v", paths)
	}

	paths, truncated = g.SimplePaths("a", "d", 1)
	if !truncated || len(paths) != 1 {
		t.Fatalf("expected truncation at 1 path, got %d paths (truncated=%v)", len(paths), truncated)
	}
}
