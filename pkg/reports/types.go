package reports

import (
	"context"
	"io"

	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Params narrows an export to a graph, a status, or a row cap. Zero
// values mean "no filter" and follow the audit log's own defaults.
type Params struct {
	GraphName string
	Status    string
	Limit     int
}

// AuditSource is the slice of the store the exporters need.
type AuditSource interface {
	ListCompilations(ctx context.Context, filter store.CompilationFilter) ([]store.CompilationEvent, error)
}

type Generator interface {
	Generate(ctx context.Context, params Params) (io.Reader, error)
}
