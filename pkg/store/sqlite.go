// Package store persists the graph catalog and the compile audit log in
// SQLite. Graphs are versioned append-only: every put creates a new
// version and reads default to the latest.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gjbm2/dagnet-sub000/pkg/funnel"
	"github.com/gjbm2/dagnet-sub000/pkg/graph"
)

// Store manages the SQLite connection and schema.
type Store struct {
	db *sql.DB
}

var _ funnel.Auditor = (*Store)(nil)

// NewStore initializes the SQLite database connection.
// It enables WAL mode for concurrency and durability.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	// Enable WAL mode (Write-Ahead Logging)
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the necessary tables if they don't exist.
func (s *Store) migrate() error {
	// Graph versions carry the full document as a JSON blob plus the
	// counts needed for listings without deserializing.
	query := `
	CREATE TABLE IF NOT EXISTS graphs (
		name TEXT NOT NULL,
		version INTEGER NOT NULL,
		nodes INTEGER NOT NULL,
		edges INTEGER NOT NULL,
		payload JSON NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (name, version)
	);

	CREATE TABLE IF NOT EXISTS compilations (
		event_id TEXT PRIMARY KEY,
		ts_event DATETIME NOT NULL,
		graph_name TEXT NOT NULL,
		from_node TEXT NOT NULL,
		to_node TEXT NOT NULL,
		provider TEXT,
		status TEXT NOT NULL,
		checks INTEGER NOT NULL,
		literals INTEGER NOT NULL,
		terms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compilations_graph ON compilations(graph_name, ts_event);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// PutGraph stores g as the next version of name and returns that version.
func (s *Store) PutGraph(ctx context.Context, name string, g *graph.Graph) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("graph name cannot be empty")
	}
	payload, err := g.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("failed to marshal graph: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var version int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM graphs WHERE name = ?`, name)
	if err := row.Scan(&version); err != nil {
		return 0, err
	}
	version++

	_, err = tx.ExecContext(ctx,
		`INSERT INTO graphs (name, version, nodes, edges, payload) VALUES (?, ?, ?, ?, ?)`,
		name, version, g.Len(), len(g.Edges), payload)
	if err != nil {
		return 0, fmt.Errorf("failed to insert graph: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return version, nil
}

// GetGraph returns the latest version of name.
func (s *Store) GetGraph(ctx context.Context, name string) (*graph.Graph, int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM graphs WHERE name = ? ORDER BY version DESC LIMIT 1`, name)
	return scanGraph(row)
}

// GetGraphVersion returns a specific stored version of name.
func (s *Store) GetGraphVersion(ctx context.Context, name string, version int) (*graph.Graph, int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version, payload FROM graphs WHERE name = ? AND version = ?`, name, version)
	return scanGraph(row)
}

func scanGraph(row *sql.Row) (*graph.Graph, int, error) {
	var version int
	var payload []byte
	if err := row.Scan(&version, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	g := graph.NewGraph()
	if err := g.UnmarshalJSON(payload); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal graph: %w", err)
	}
	return g, version, nil
}

// DeleteGraph removes every stored version of name.
func (s *Store) DeleteGraph(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete graph: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListGraphs returns the latest version of every stored graph.
func (s *Store) ListGraphs(ctx context.Context) ([]GraphInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name, g.version, g.nodes, g.edges, g.created_at
		FROM graphs g
		JOIN (SELECT name, MAX(version) AS version FROM graphs GROUP BY name) latest
		  ON g.name = latest.name AND g.version = latest.version
		ORDER BY g.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []GraphInfo
	for rows.Next() {
		var info GraphInfo
		if err := rows.Scan(&info.Name, &info.Version, &info.Nodes, &info.Edges, &info.CreatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// RecordCompilation appends one audit row. Implements funnel.Auditor.
func (s *Store) RecordCompilation(ctx context.Context, rec funnel.CompilationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO compilations
			(event_id, ts_event, graph_name, from_node, to_node, provider, status, checks, literals, terms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), time.Now().UTC(), rec.GraphName, rec.From, rec.To,
		rec.Provider, rec.Status, rec.Checks, rec.Literals, rec.Terms)
	if err != nil {
		return fmt.Errorf("failed to insert compilation event: %w", err)
	}
	return nil
}

// ListCompilations returns audit rows, newest first.
func (s *Store) ListCompilations(ctx context.Context, filter CompilationFilter) ([]CompilationEvent, error) {
	q := `SELECT event_id, ts_event, graph_name, from_node, to_node, provider, status, checks, literals, terms
		FROM compilations WHERE 1=1`
	var args []any
	if filter.GraphName != "" {
		q += " AND graph_name = ?"
		args = append(args, filter.GraphName)
	}
	if filter.Status != "" {
		q += " AND status = ?"
		args = append(args, filter.Status)
	}
	q += " ORDER BY ts_event DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CompilationEvent
	for rows.Next() {
		var ev CompilationEvent
		if err := rows.Scan(&ev.EventID, &ev.TsEvent, &ev.GraphName, &ev.FromNode, &ev.ToNode,
			&ev.Provider, &ev.Status, &ev.Checks, &ev.Literals, &ev.Terms); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
