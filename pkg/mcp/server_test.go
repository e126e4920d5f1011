package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestMCPServer_ReadGraphs(t *testing.T) {
	// 1. Mock API Server
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/graphs" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"name": "signup", "version": 2, "nodes": 7, "edges": 14}]`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	// 2. Create MCP Server
	s := NewServer(ts.URL)

	// 3. Test Handler directly
	req := mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: "dagnet://graphs",
		},
	}

	result, err := s.handleReadGraphs(context.Background(), req)
	if err != nil {
		t.Fatalf("handleReadGraphs failed: %v", err)
	}

	if len(result) != 1 {
		t.Fatalf("Expected 1 resource content, got %d", len(result))
	}

	content, ok := result[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("Expected TextResourceContents")
	}

	if content.MIMEType != "application/json" {
		t.Errorf("Expected application/json, got %s", content.MIMEType)
	}

	var infos []map[string]interface{}
	if err := json.Unmarshal([]byte(content.Text), &infos); err != nil {
		t.Errorf("Failed to parse result JSON: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("Expected 1 graph entry")
	}
}

func TestMCPServer_CompileEdge(t *testing.T) {
	// 1. Mock API Server
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/compile" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status": "exact", "constraints": {"exclude": ["b"]}}`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	// 2. Create MCP Server
	s := NewServer(ts.URL)

	// 3. Test Handler directly
	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "compile_edge",
			Arguments: map[string]interface{}{
				"graph":    "signup",
				"from":     "a",
				"to":       "m",
				"provider": "warehouse",
			},
		},
	}

	result, err := s.handleCompileEdge(context.Background(), req)
	if err != nil {
		t.Fatalf("handleCompileEdge failed: %v", err)
	}
	if result.IsError {
		t.Errorf("Expected success, got error")
	}

	if len(result.Content) == 0 {
		t.Fatalf("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok || !strings.Contains(text.Text, `"exact"`) {
		t.Errorf("Unexpected tool output: %+v", result.Content[0])
	}
}

func TestMCPServer_StoreGraph(t *testing.T) {
	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/graphs" && r.Method == http.MethodPost {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"name": "signup", "version": 1}`))
			return
		}
		http.NotFound(w, r)
	})
	ts := httptest.NewServer(apiHandler)
	defer ts.Close()

	s := NewServer(ts.URL)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "store_graph",
			Arguments: map[string]interface{}{
				"name":       "signup",
				"graph_json": `{"nodes": {"a": {"id": "a"}, "b": {"id": "b"}}, "edges": [{"from": "a", "to": "b"}]}`,
			},
		},
	}

	result, err := s.handleStoreGraph(context.Background(), req)
	if err != nil {
		t.Fatalf("handleStoreGraph failed: %v", err)
	}
	if result.IsError {
		t.Errorf("Expected success, got error")
	}

	badReq := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "store_graph",
			Arguments: map[string]interface{}{
				"name":       "broken",
				"graph_json": `not json`,
			},
		},
	}
	result, err = s.handleStoreGraph(context.Background(), badReq)
	if err != nil {
		t.Fatalf("handleStoreGraph failed: %v", err)
	}
	if !result.IsError {
		t.Errorf("Invalid graph JSON must produce a tool error")
	}
}
