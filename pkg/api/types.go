package api

import (
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/provider"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

// CompileRequest matches the POST /v1/compile body schema. The graph is
// addressed by catalog name or supplied inline; inline wins when both
// are set.
type CompileRequest struct {
	Graph         string               `json:"graph,omitempty"`
	GraphInline   *graph.Graph         `json:"graph_inline,omitempty"`
	From          string               `json:"from"`
	To            string               `json:"to"`
	Condition     *query.ConstraintSet `json:"condition,omitempty"`
	Provider      provider.ProviderID  `json:"provider,omitempty"`
	PreserveShape bool                 `json:"preserve_shape,omitempty"`
	MaxChecks     int                  `json:"max_checks,omitempty"`
}

// PutGraphRequest matches the POST /v1/graphs body schema.
type PutGraphRequest struct {
	Name  string       `json:"name"`
	Graph *graph.Graph `json:"graph"`
}

// PutGraphResponse matches the response for POST /v1/graphs.
type PutGraphResponse struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}
