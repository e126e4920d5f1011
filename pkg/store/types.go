package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a named graph (or version) does not exist.
var ErrNotFound = errors.New("graph not found")

// GraphInfo summarizes one stored graph version.
type GraphInfo struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
}

// CompilationEvent is one row of the append-only compile audit log.
type CompilationEvent struct {
	EventID   string    `json:"event_id"`
	TsEvent   time.Time `json:"ts_event"`
	GraphName string    `json:"graph_name"`
	FromNode  string    `json:"from_node"`
	ToNode    string    `json:"to_node"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	Checks    int       `json:"checks"`
	Literals  int       `json:"literals"`
	Terms     int       `json:"terms"`
}

// CompilationFilter narrows audit log queries.
type CompilationFilter struct {
	GraphName string
	Status    string
	Limit     int
}
