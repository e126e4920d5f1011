package reports

import (
	"fmt"
)

// NewGenerator creates an audit log exporter for the requested format.
func NewGenerator(format Format, source AuditSource) (Generator, error) {
	switch format {
	case FormatCSV:
		return NewCSVGenerator(source), nil
	case FormatJSON:
		return NewJSONGenerator(source), nil
	default:
		return nil, fmt.Errorf("unknown report format: %s", format)
	}
}
