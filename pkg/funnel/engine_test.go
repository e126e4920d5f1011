package funnel

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/gjbm2/dagnet-sub000/pkg/flow"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/provider"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

func multiBranch() *graph.Graph {
	g := graph.NewGraph()
	for _, e := range [][2]string{
		{"a", "m"}, {"a", "b"}, {"b", "m"},
		{"a", "f"}, {"f", "b"}, {"f", "g"},
		{"a", "e"}, {"e", "b"}, {"e", "g"},
		{"a", "d"}, {"d", "m"}, {"d", "g"}, {"d", "e"},
		{"g", "m"},
	} {
		g.AddEdge(e[0], e[1])
	}
	return g
}

type recordingAuditor struct {
	records []CompilationRecord
	fail    bool
}

func (a *recordingAuditor) RecordCompilation(_ context.Context, rec CompilationRecord) error {
	if a.fail {
		return errors.New("audit unavailable")
	}
	a.records = append(a.records, rec)
	return nil
}

func TestCompileEdgeRewritesForIncapableBackend(t *testing.T) {
	g := multiBranch()
	eng := NewEngine(Config{}, provider.NewCatalog(), nil, nil)

	res, err := eng.CompileEdge(context.Background(), "demo", g, CompileRequest{
		From: "a", To: "m", Provider: "amplitude",
	})
	if err != nil {
		t.Fatalf("CompileEdge failed: %v", err)
	}
	if res.Status != query.StatusExact {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Constraints.Exclude) != 0 {
		t.Fatalf("exclude literals must be lowered to terms: %v", res.Constraints.Exclude)
	}
	if len(res.Constraints.Terms) != 7 {
		t.Fatalf("terms = %d, want 7", len(res.Constraints.Terms))
	}
	if res.Merge != "m" {
		t.Fatalf("merge = %s, want m", res.Merge)
	}

	flows := flow.Distribute(g, "a", 1000)
	direct := flow.EdgeUnits(flows, "a", "m")
	recon := flow.ApplyTerms(flows, "a", "m", res.Constraints.Terms)
	if math.Abs(recon-direct) > 1e-6 {
		t.Fatalf("reconstructed = %f, direct = %f", recon, direct)
	}
}

func TestCompileEdgeKeepsExcludeForNativeBackend(t *testing.T) {
	g := multiBranch()
	eng := NewEngine(Config{}, provider.NewCatalog(), nil, nil)

	res, err := eng.CompileEdge(context.Background(), "demo", g, CompileRequest{
		From: "a", To: "m", Provider: "warehouse",
	})
	if err != nil {
		t.Fatalf("CompileEdge failed: %v", err)
	}
	if got := res.Constraints.Exclude; len(got) != 3 {
		t.Fatalf("exclude = %v, want the three sibling alternates", got)
	}
	if len(res.Constraints.Terms) != 0 {
		t.Fatalf("native-exclude backends must not receive terms: %+v", res.Constraints.Terms)
	}
}

func TestCompileEdgeInvalidAnchor(t *testing.T) {
	g := multiBranch()
	eng := NewEngine(Config{}, provider.NewCatalog(), nil, nil)

	_, err := eng.CompileEdge(context.Background(), "demo", g, CompileRequest{From: "b", To: "g"})
	if !errors.Is(err, query.ErrInvalidAnchor) {
		t.Fatalf("expected ErrInvalidAnchor, got %v", err)
	}
}

func TestCompileEdgeUnsatisfiableSkipsRewrite(t *testing.T) {
	g := multiBranch()
	eng := NewEngine(Config{}, provider.NewCatalog(), nil, nil)

	cond := &query.ConstraintSet{Visited: []string{"b"}, Exclude: []string{"b"}}
	res, err := eng.CompileEdge(context.Background(), "demo", g, CompileRequest{
		From: "a", To: "m", Condition: cond, Provider: "amplitude",
	})
	if err != nil {
		t.Fatalf("CompileEdge failed: %v", err)
	}
	if res.Status != query.StatusUnsatisfiable {
		t.Fatalf("status = %s", res.Status)
	}
	if len(res.Constraints.Terms) != 0 || res.Constraints.HasLiterals() {
		t.Fatalf("unsatisfiable results must stay empty: %+v", res.Constraints)
	}
}

func TestCompileEdgeAudits(t *testing.T) {
	g := multiBranch()
	aud := &recordingAuditor{}
	eng := NewEngine(Config{}, provider.NewCatalog(), aud, nil)

	if _, err := eng.CompileEdge(context.Background(), "demo", g, CompileRequest{
		From: "a", To: "m", Provider: "amplitude",
	}); err != nil {
		t.Fatalf("CompileEdge failed: %v", err)
	}
	if len(aud.records) != 1 {
		t.Fatalf("audit records = %d, want 1", len(aud.records))
	}
	rec := aud.records[0]
	if rec.GraphName != "demo" || rec.From != "a" || rec.To != "m" || rec.Terms != 7 {
		t.Fatalf("record = %+v", rec)
	}
}

func TestCompileEdgeAuditFailureIsNonFatal(t *testing.T) {
	g := multiBranch()
	eng := NewEngine(Config{}, provider.NewCatalog(), &recordingAuditor{fail: true}, nil)

	if _, err := eng.CompileEdge(context.Background(), "demo", g, CompileRequest{
		From: "a", To: "m", Provider: "amplitude",
	}); err != nil {
		t.Fatalf("audit failures must not fail the compilation: %v", err)
	}
}
