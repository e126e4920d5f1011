package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

// CSVGenerator renders the compilation audit log as CSV, one row per
// compiled anchor edge.
type CSVGenerator struct {
	source AuditSource
}

func NewCSVGenerator(source AuditSource) *CSVGenerator {
	return &CSVGenerator{source: source}
}

// Generate writes the filtered audit log to an in-memory CSV document.
func (g *CSVGenerator) Generate(ctx context.Context, params Params) (io.Reader, error) {
	events, err := g.source.ListCompilations(ctx, store.CompilationFilter{
		GraphName: params.GraphName,
		Status:    params.Status,
		Limit:     params.Limit,
	})
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	headers := []string{"ts_event", "graph", "from", "to", "provider", "status", "checks", "literals", "terms"}
	if err := writer.Write(headers); err != nil {
		return nil, err
	}

	for _, ev := range events {
		row := []string{
			ev.TsEvent.UTC().Format(time.RFC3339),
			ev.GraphName,
			ev.FromNode,
			ev.ToNode,
			ev.Provider,
			ev.Status,
			strconv.Itoa(ev.Checks),
			strconv.Itoa(ev.Literals),
			strconv.Itoa(ev.Terms),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}

	return buf, nil
}
