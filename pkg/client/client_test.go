package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gjbm2/dagnet-sub000/pkg/api"
	"github.com/gjbm2/dagnet-sub000/pkg/funnel"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

func fastClient(endpoint string) *Client {
	c := NewClient(endpoint)
	c.backoff = &ExponentialBackoff{Base: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2}
	return c
}

func diamond() *graph.Graph {
	g := graph.NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")
	g.AddEdge("b", "d")
	g.AddEdge("c", "d")
	return g
}

func TestCompile(t *testing.T) {
	want := funnel.CompileResult{
		Status: query.StatusExact,
		Constraints: query.ConstraintSet{
			Terms: []query.SignedTerm{
				{Coefficient: query.Minus, Constraints: query.ConstraintSet{Visited: []string{"c"}}},
			},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/compile" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req api.CompileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Graph != "signup" || req.From != "a" || req.To != "b" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	res, err := fastClient(srv.URL).Compile(context.Background(), api.CompileRequest{
		Graph: "signup", From: "a", To: "b",
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if res.Status != query.StatusExact || len(res.Constraints.Terms) != 1 {
		t.Fatalf("result = %+v", res)
	}
}

func TestCompileValidation(t *testing.T) {
	c := fastClient("http://127.0.0.1:1")
	if _, err := c.Compile(context.Background(), api.CompileRequest{Graph: "g", From: "a"}); err == nil {
		t.Fatalf("missing to must fail locally")
	}
	if _, err := c.Compile(context.Background(), api.CompileRequest{From: "a", To: "b"}); err == nil {
		t.Fatalf("missing graph must fail locally")
	}
}

func TestCompileSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_anchor"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).Compile(context.Background(), api.CompileRequest{
		Graph: "signup", From: "a", To: "b",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestRetryOnUpstreamError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	status, err := fastClient(srv.URL).Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping failed after retries: %v", err)
	}
	if status.Status != "ok" {
		t.Fatalf("status = %+v", status)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryExhaustion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := fastClient(srv.URL).Ping(context.Background()); err == nil {
		t.Fatalf("expected error once retries are exhausted")
	}
}

func TestPutGraphAndListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/graphs":
			switch r.Method {
			case http.MethodPost:
				var req api.PutGraphRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name != "signup" {
					t.Errorf("bad put request: %v %+v", err, req)
				}
				json.NewEncoder(w).Encode(api.PutGraphResponse{Name: "signup", Version: 2})
			case http.MethodGet:
				json.NewEncoder(w).Encode([]store.GraphInfo{{Name: "signup", Version: 2, Nodes: 4}})
			}
		case "/v1/compilations":
			if r.URL.Query().Get("graph") != "signup" || r.URL.Query().Get("limit") != "5" {
				t.Errorf("query = %s", r.URL.RawQuery)
			}
			json.NewEncoder(w).Encode([]store.CompilationEvent{{EventID: "1", GraphName: "signup"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := fastClient(srv.URL)
	ctx := context.Background()

	version, err := c.PutGraph(ctx, "signup", diamond())
	if err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if version != 2 {
		t.Fatalf("version = %d", version)
	}

	infos, err := c.ListGraphs(ctx)
	if err != nil {
		t.Fatalf("ListGraphs failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "signup" {
		t.Fatalf("infos = %+v", infos)
	}

	events, err := c.ListCompilations(ctx, "signup", 5)
	if err != nil {
		t.Fatalf("ListCompilations failed: %v", err)
	}
	if len(events) != 1 || events[0].EventID != "1" {
		t.Fatalf("events = %+v", events)
	}
}
