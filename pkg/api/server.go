// Package api exposes the compile service over HTTP.
package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gjbm2/dagnet-sub000/pkg/funnel"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
	"github.com/gjbm2/dagnet-sub000/pkg/reports"
	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

// Context keys
type contextKey string

const traceIDKey contextKey = "trace_id"

// Interfaces for dependencies to enable mocking

type GraphStoreInterface interface {
	PutGraph(ctx context.Context, name string, g *graph.Graph) (int, error)
	GetGraph(ctx context.Context, name string) (*graph.Graph, int, error)
	DeleteGraph(ctx context.Context, name string) error
	ListGraphs(ctx context.Context) ([]store.GraphInfo, error)
	ListCompilations(ctx context.Context, filter store.CompilationFilter) ([]store.CompilationEvent, error)
}

type CompilerInterface interface {
	CompileEdge(ctx context.Context, graphName string, g *graph.Graph, req funnel.CompileRequest) (*funnel.CompileResult, error)
}

// Server encapsulates the HTTP API server
type Server struct {
	store    GraphStoreInterface
	compiler CompilerInterface
	server   *http.Server
}

// NewServer creates a new API server instance
func NewServer(st GraphStoreInterface, compiler CompilerInterface, addr string) *Server {
	s := &Server{store: st, compiler: compiler}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/compile", s.handleCompile)
	mux.HandleFunc("/v1/graphs", s.handleGraphs)
	mux.HandleFunc("/v1/graphs/", s.handleGraphByName)
	mux.HandleFunc("/v1/compilations", s.handleCompilations)
	mux.HandleFunc("/v1/compilations/export", s.handleCompilationsExport)

	// Middleware: Logging, Panic Recovery, Security Headers
	handler := withLogging(withRecovery(withSecureHeaders(mux)))

	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start runs the HTTP server (blocking)
func (s *Server) Start() error {
	fmt.Printf(`{"level":"info","msg":"server_starting","addr":"%s"}`+"\n", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	fmt.Println(`{"level":"info","msg":"server_stopping"}`)
	return s.server.Shutdown(ctx)
}

// handleCompile resolves the requested graph and compiles the anchor edge.
func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	var req CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}
	if req.From == "" || req.To == "" {
		http.Error(w, `{"error":"missing_required_fields","fields":["from","to"]}`, http.StatusBadRequest)
		return
	}

	g := req.GraphInline
	graphName := req.Graph
	if g == nil {
		if graphName == "" {
			http.Error(w, `{"error":"missing_graph"}`, http.StatusBadRequest)
			return
		}
		stored, _, err := s.store.GetGraph(r.Context(), graphName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"graph_not_found"}`, http.StatusNotFound)
				return
			}
			fmt.Printf(`{"level":"error","msg":"failed_to_load_graph","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		g = stored
	}

	result, err := s.compiler.CompileEdge(r.Context(), graphName, g, funnel.CompileRequest{
		From:          req.From,
		To:            req.To,
		Condition:     req.Condition,
		Provider:      req.Provider,
		PreserveShape: req.PreserveShape,
		MaxChecks:     req.MaxChecks,
	})
	if err != nil {
		if errors.Is(err, query.ErrInvalidAnchor) {
			http.Error(w, `{"error":"invalid_anchor"}`, http.StatusBadRequest)
			return
		}
		fmt.Printf(`{"level":"error","msg":"compile_failed","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// handleGraphs stores a new graph version or lists the catalog.
func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req PutGraphRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
			return
		}
		if req.Name == "" || req.Graph == nil || req.Graph.Len() == 0 {
			http.Error(w, `{"error":"missing_required_fields","fields":["name","graph"]}`, http.StatusBadRequest)
			return
		}
		version, err := s.store.PutGraph(r.Context(), req.Name, req.Graph)
		if err != nil {
			fmt.Printf(`{"level":"error","msg":"failed_to_store_graph","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		s.updateStoredGraphsGauge(r.Context())
		writeJSON(w, r, http.StatusOK, PutGraphResponse{Name: req.Name, Version: version})

	case http.MethodGet:
		infos, err := s.store.ListGraphs(r.Context())
		if err != nil {
			fmt.Printf(`{"level":"error","msg":"failed_to_list_graphs","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		if infos == nil {
			infos = []store.GraphInfo{}
		}
		writeJSON(w, r, http.StatusOK, infos)

	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleGraphByName returns or deletes one stored graph.
func (s *Server) handleGraphByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/graphs/")
	if name == "" || strings.Contains(name, "/") {
		http.Error(w, `{"error":"invalid_graph_name"}`, http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		g, version, err := s.store.GetGraph(r.Context(), name)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"graph_not_found"}`, http.StatusNotFound)
				return
			}
			fmt.Printf(`{"level":"error","msg":"failed_to_load_graph","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]any{
			"name":    name,
			"version": version,
			"graph":   g,
		})

	case http.MethodDelete:
		if err := s.store.DeleteGraph(r.Context(), name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"graph_not_found"}`, http.StatusNotFound)
				return
			}
			fmt.Printf(`{"level":"error","msg":"failed_to_delete_graph","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		s.updateStoredGraphsGauge(r.Context())
		writeJSON(w, r, http.StatusOK, map[string]any{"name": name, "deleted": true})

	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

// updateStoredGraphsGauge refreshes the catalog size metric, best-effort.
func (s *Server) updateStoredGraphsGauge(ctx context.Context) {
	infos, err := s.store.ListGraphs(ctx)
	if err != nil {
		return
	}
	funnel.DagnetStoredGraphs.Set(float64(len(infos)))
}

// handleCompilations returns the audit log, newest first.
func (s *Server) handleCompilations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	filter := store.CompilationFilter{
		GraphName: r.URL.Query().Get("graph"),
		Status:    r.URL.Query().Get("status"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			filter.Limit = val
		}
	}

	events, err := s.store.ListCompilations(r.Context(), filter)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_list_compilations","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []store.CompilationEvent{}
	}
	writeJSON(w, r, http.StatusOK, events)
}

// handleCompilationsExport streams the audit log as CSV or JSON.
func (s *Server) handleCompilationsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	format := reports.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = reports.FormatCSV
	}
	gen, err := reports.NewGenerator(format, s.store)
	if err != nil {
		http.Error(w, `{"error":"unknown_format"}`, http.StatusBadRequest)
		return
	}

	params := reports.Params{
		GraphName: r.URL.Query().Get("graph"),
		Status:    r.URL.Query().Get("status"),
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			params.Limit = val
		}
	}

	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_export_compilations","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	if format == reports.FormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/csv")
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_write_export","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
}

// handleHealth returns simple status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_encode_response","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
}

// Middleware: Panic Recovery
func withRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				fmt.Printf(`{"level":"error","msg":"panic_recovered","error":"%v","path":"%s"}`+"\n", err, r.URL.Path)
				http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Middleware: Request Logging
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = generateTraceID()
		}

		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		r = r.WithContext(ctx)

		// Wrap writer to capture status code
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		fmt.Printf(`{"level":"info","msg":"http_request","trace_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`+"\n",
			traceID, r.Method, r.URL.Path, ww.status, duration.Milliseconds())
	})
}

func generateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Fallback if random fails (unlikely)
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func getTraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// statusWriter captures HTTP status code
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Middleware: Secure Headers
func withSecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}
