package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

// JSONGenerator renders the compilation audit log as a JSON array.
type JSONGenerator struct {
	source AuditSource
}

func NewJSONGenerator(source AuditSource) *JSONGenerator {
	return &JSONGenerator{source: source}
}

func (g *JSONGenerator) Generate(ctx context.Context, params Params) (io.Reader, error) {
	events, err := g.source.ListCompilations(ctx, store.CompilationFilter{
		GraphName: params.GraphName,
		Status:    params.Status,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(events); err != nil {
		return nil, err
	}
	return buf, nil
}
