package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gjbm2/dagnet-sub000/pkg/funnel"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "dagnet.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func diamond() *graph.Graph {
	g := graph.NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")
	return g
}

func TestPutGetGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.PutGraph(ctx, "signup", diamond())
	if err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if v != 1 {
		t.Fatalf("first version = %d, want 1", v)
	}

	got, version, err := s.GetGraph(ctx, "signup")
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if version != 1 || got.Len() != 4 || !got.HasEdge("a", "b") {
		t.Fatalf("round trip lost data: version=%d len=%d", version, got.Len())
	}
}

func TestPutGraphVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.PutGraph(ctx, "signup", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}

	bigger := diamond()
	bigger.AddEdge("d", "e")
	v, err := s.PutGraph(ctx, "signup", bigger)
	if err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if v != 2 {
		t.Fatalf("second version = %d, want 2", v)
	}

	latest, version, err := s.GetGraph(ctx, "signup")
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if version != 2 || !latest.HasEdge("d", "e") {
		t.Fatalf("latest read returned version %d", version)
	}

	old, version, err := s.GetGraphVersion(ctx, "signup", 1)
	if err != nil {
		t.Fatalf("GetGraphVersion failed: %v", err)
	}
	if version != 1 || old.HasEdge("d", "e") {
		t.Fatalf("versioned read returned the wrong payload")
	}
}

func TestGetGraphNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, _, err := s.GetGraph(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListGraphs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.PutGraph(ctx, "signup", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if _, err := s.PutGraph(ctx, "signup", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if _, err := s.PutGraph(ctx, "checkout", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}

	infos, err := s.ListGraphs(ctx)
	if err != nil {
		t.Fatalf("ListGraphs failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("listed %d graphs, want 2", len(infos))
	}
	if infos[0].Name != "checkout" || infos[1].Name != "signup" || infos[1].Version != 2 {
		t.Fatalf("listing = %+v", infos)
	}
	if infos[0].Nodes != 4 || infos[0].Edges != 4 {
		t.Fatalf("counts = %+v", infos[0])
	}
}

func TestCompilationAuditLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []funnel.CompilationRecord{
		{GraphName: "signup", From: "a", To: "m", Provider: "amplitude", Status: "exact", Checks: 9, Literals: 0, Terms: 7},
		{GraphName: "signup", From: "a", To: "m", Provider: "ga4", Status: "degraded_compilation", Checks: 3, Terms: 2},
		{GraphName: "checkout", From: "x", To: "y", Provider: "warehouse", Status: "exact", Checks: 1},
	}
	for _, rec := range recs {
		if err := s.RecordCompilation(ctx, rec); err != nil {
			t.Fatalf("RecordCompilation failed: %v", err)
		}
	}

	all, err := s.ListCompilations(ctx, CompilationFilter{GraphName: "signup"})
	if err != nil {
		t.Fatalf("ListCompilations failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("signup events = %d, want 2", len(all))
	}

	degraded, err := s.ListCompilations(ctx, CompilationFilter{Status: "degraded_compilation"})
	if err != nil {
		t.Fatalf("ListCompilations failed: %v", err)
	}
	if len(degraded) != 1 || degraded[0].Provider != "ga4" {
		t.Fatalf("degraded events = %+v", degraded)
	}

	limited, err := s.ListCompilations(ctx, CompilationFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListCompilations failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d rows", len(limited))
	}
}

func TestDeleteGraph(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.PutGraph(ctx, "signup", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if _, err := s.PutGraph(ctx, "signup", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}

	if err := s.DeleteGraph(ctx, "signup"); err != nil {
		t.Fatalf("DeleteGraph failed: %v", err)
	}
	if _, _, err := s.GetGraph(ctx, "signup"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteGraph(ctx, "signup"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for double delete, got %v", err)
	}
}
