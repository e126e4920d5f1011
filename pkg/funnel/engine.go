// Package funnel is the compilation facade: it runs constraint synthesis
// for an anchor edge, consults the provider catalog, and lowers exclude
// literals into signed terms for backends that cannot negate.
package funnel

import (
	"context"
	"log/slog"

	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/provider"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
	"github.com/gjbm2/dagnet-sub000/pkg/rewrite"
	"github.com/gjbm2/dagnet-sub000/pkg/synth"
)

// CompileRequest asks for the constraints discriminating one edge of a
// funnel graph, optionally under a pre-existing condition.
type CompileRequest struct {
	From          string               `json:"from"`
	To            string               `json:"to"`
	Condition     *query.ConstraintSet `json:"condition,omitempty"`
	Provider      provider.ProviderID  `json:"provider,omitempty"`
	PreserveShape bool                 `json:"preserve_shape,omitempty"`
	MaxChecks     int                  `json:"max_checks,omitempty"`
	Weights       *query.Weights       `json:"weights,omitempty"`
}

// CompileResult is the provider-ready output of one compilation.
type CompileResult struct {
	Status      query.Status        `json:"status"`
	Constraints query.ConstraintSet `json:"constraints"`
	Diagnostics query.Diagnostics   `json:"diagnostics"`
	Witness     []string            `json:"witness,omitempty"`
	Merge       string              `json:"merge,omitempty"`
	Provider    provider.ProviderID `json:"provider,omitempty"`
}

// CompilationRecord is the audit row persisted per compilation.
type CompilationRecord struct {
	GraphName string
	From      string
	To        string
	Provider  string
	Status    string
	Checks    int
	Literals  int
	Terms     int
}

// Auditor persists compilation records. Implemented by the store; a nil
// auditor disables the audit log.
type Auditor interface {
	RecordCompilation(ctx context.Context, rec CompilationRecord) error
}

// Engine wires synthesis, the provider catalog, and the rewrite compiler.
type Engine struct {
	cfg     Config
	catalog *provider.Catalog
	auditor Auditor
	logger  *slog.Logger
}

// NewEngine builds an engine around a catalog. auditor and logger may be
// nil.
func NewEngine(cfg Config, catalog *provider.Catalog, auditor Auditor, logger *slog.Logger) *Engine {
	if catalog == nil {
		catalog = provider.NewCatalog()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, catalog: catalog, auditor: auditor, logger: logger}
}

// CompileEdge synthesizes constraints for the anchor edge and, when the
// target backend cannot express exclusion natively, replaces the exclude
// literals with signed inclusion-exclusion terms over the competing
// branches out of the anchor source.
func (e *Engine) CompileEdge(ctx context.Context, graphName string, g *graph.Graph, req CompileRequest) (*CompileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := synth.Options{
		Weights:       e.cfg.Weights,
		MaxChecks:     e.cfg.MaxChecks,
		PreserveShape: e.cfg.PreserveShape || req.PreserveShape,
	}
	if req.Weights != nil {
		opts.Weights = *req.Weights
	}
	if req.MaxChecks > 0 {
		opts.MaxChecks = req.MaxChecks
	}

	syn, err := synth.Synthesize(g, graph.Edge{From: req.From, To: req.To}, req.Condition, opts)
	if err != nil {
		return nil, err
	}

	res := &CompileResult{
		Status:      syn.Status,
		Constraints: syn.Constraints,
		Diagnostics: syn.Diagnostics,
		Witness:     syn.Witness,
		Provider:    req.Provider,
	}

	needsRewrite := syn.Status != query.StatusUnsatisfiable &&
		len(syn.Constraints.Exclude) > 0 &&
		!e.catalog.SupportsNativeExclude(req.Provider)

	if needsRewrite {
		merge := rewrite.FindMerge(g, req.From, req.To)
		hops := branchHops(g, req.From, req.To, merge)
		comp := rewrite.CompileHops(g, req.From, req.To, merge, hops, e.catalog.TermCap(req.Provider))

		res.Merge = merge
		res.Constraints.Exclude = nil
		res.Constraints.Terms = comp.Terms
		res.Diagnostics.Checks += comp.Diagnostics.Checks
		res.Diagnostics.Terms = len(comp.Terms)
		res.Diagnostics.Literals = res.Constraints.LiteralCount()
		if comp.Status.Degraded() {
			res.Status = comp.Status
		}
	}

	DagnetCompilationsTotal.WithLabelValues(string(req.Provider), string(res.Status)).Inc()
	DagnetSynthesisChecks.Observe(float64(res.Diagnostics.Checks))
	DagnetCompiledTerms.Observe(float64(res.Diagnostics.Terms))

	e.logger.Debug("compiled edge",
		"graph", graphName,
		"from", req.From,
		"to", req.To,
		"provider", req.Provider,
		"status", res.Status,
		"checks", res.Diagnostics.Checks,
		"terms", res.Diagnostics.Terms,
	)

	if e.auditor != nil {
		rec := CompilationRecord{
			GraphName: graphName,
			From:      req.From,
			To:        req.To,
			Provider:  string(req.Provider),
			Status:    string(res.Status),
			Checks:    res.Diagnostics.Checks,
			Literals:  res.Diagnostics.Literals,
			Terms:     res.Diagnostics.Terms,
		}
		if err := e.auditor.RecordCompilation(ctx, rec); err != nil {
			e.logger.Warn("audit write failed", "error", err)
		}
	}

	return res, nil
}

// branchHops lists the competing first hops out of the split: every
// successor except the kept target that can still reach the merge.
func branchHops(g *graph.Graph, split, keptTarget, merge string) []string {
	reachesMerge := g.Ancestors(merge)
	var hops []string
	for _, h := range g.Successors(split) {
		if h == keptTarget {
			continue
		}
		if reachesMerge[h] {
			hops = append(hops, h)
		}
	}
	return hops
}
