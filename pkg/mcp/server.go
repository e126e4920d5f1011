// Package mcp adapts the dagnet daemon to the Model Context Protocol so
// agents can store funnel graphs and compile edge queries.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gjbm2/dagnet-sub000/pkg/api"
	"github.com/gjbm2/dagnet-sub000/pkg/client"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/provider"
)

// Server adapts dagnet-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"dagnet",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// dagnet://graphs
	s.mcpServer.AddResource(mcp.NewResource(
		"dagnet://graphs",
		"Funnel Graph Catalog",
		mcp.WithResourceDescription("Stored funnel graphs with their latest versions and sizes"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadGraphs)
}

// --- Tools ---

func (s *Server) registerTools() {
	// compile_edge
	s.mcpServer.AddTool(mcp.NewTool(
		"compile_edge",
		mcp.WithDescription("Compile the constraint set that counts direct from->to transitions of a stored funnel graph. Returns literals and, for backends without native exclusion, signed inclusion-exclusion terms."),
		mcp.WithString("graph", mcp.Required(), mcp.Description("Name of the stored graph")),
		mcp.WithString("from", mcp.Required(), mcp.Description("Anchor edge source node")),
		mcp.WithString("to", mcp.Required(), mcp.Description("Anchor edge target node")),
		mcp.WithString("provider", mcp.Description("Analytics backend id (e.g., 'amplitude', 'warehouse')")),
		mcp.WithBoolean("preserve_shape", mcp.Description("Forbid rewrites between literal families")),
	), s.handleCompileEdge)

	// store_graph
	s.mcpServer.AddTool(mcp.NewTool(
		"store_graph",
		mcp.WithDescription("Store a funnel graph under a name. The graph is a JSON document with 'nodes' and 'edges'."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Catalog name for the graph")),
		mcp.WithString("graph_json", mcp.Required(), mcp.Description("Graph document as JSON")),
	), s.handleStoreGraph)

	// list_graphs
	s.mcpServer.AddTool(mcp.NewTool(
		"list_graphs",
		mcp.WithDescription("List the stored funnel graphs."),
	), s.handleListGraphs)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"dagnet-aware",
		mcp.WithPromptDescription("Provides context about dagnet concepts (graphs, anchor edges, constraint sets)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadGraphs(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	infos, err := s.apiClient.ListGraphs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch graphs: %w", err)
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal graphs: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleCompileEdge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	graphName := mcp.ParseString(request, "graph", "")
	from := mcp.ParseString(request, "from", "")
	to := mcp.ParseString(request, "to", "")
	providerID := mcp.ParseString(request, "provider", "")
	preserveShape := mcp.ParseBoolean(request, "preserve_shape", false)

	result, err := s.apiClient.Compile(ctx, api.CompileRequest{
		Graph:         graphName,
		From:          from,
		To:            to,
		Provider:      provider.ProviderID(providerID),
		PreserveShape: preserveShape,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleStoreGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := mcp.ParseString(request, "name", "")
	graphJSON := mcp.ParseString(request, "graph_json", "")

	g := graph.NewGraph()
	if err := g.UnmarshalJSON([]byte(graphJSON)); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid graph document: %v", err)), nil
	}

	version, err := s.apiClient.PutGraph(ctx, name, g)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored graph %q as version %d", name, version)), nil
}

func (s *Server) handleListGraphs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos, err := s.apiClient.ListGraphs(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal graphs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "dagnet-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with dagnet, a funnel-query compiler for marketing graphs.

Concepts:
- Graph: A directed acyclic funnel of journey stages, stored by name.
- Anchor edge: The from->to transition whose direct traffic you want to count.
- Constraint set: visited / exclude / visitedAny literals a journey must satisfy.
- Signed terms: for backends without a native "never visited" operator, exclude
  literals are lowered to minus/plus inclusion-exclusion clauses.

Use 'store_graph' to register a funnel, then 'compile_edge' to get the
provider-ready query for a transition. A status other than "exact" means the
result is unsatisfiable or an approximation; report that to the user.
`

	return mcp.NewGetPromptResult(
		"dagnet-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}
