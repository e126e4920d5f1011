package graph

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Node represents a funnel touchpoint.
type Node struct {
	ID         string            `json:"id"`
	Label      string            `json:"label,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Edge represents a directed transition between two touchpoints.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a directed funnel graph. It is expected to be acyclic; cyclic
// input degrades minimality guarantees downstream but never correctness of
// the literals returned. A Graph must not be mutated while a compilation
// is reading it.
type Graph struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []*Edge          `json:"edges"`

	out     map[string][]string
	in      map[string][]string
	edgeSet map[Edge]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:   make(map[string]*Node),
		Edges:   make([]*Edge, 0),
		out:     make(map[string][]string),
		in:      make(map[string][]string),
		edgeSet: make(map[Edge]bool),
	}
}

// AddNode adds a node to the graph. Re-adding an existing ID replaces it.
func (g *Graph) AddNode(n *Node) {
	g.Nodes[n.ID] = n
}

// EnsureNode adds a bare node if the ID is not present yet.
func (g *Graph) EnsureNode(id string) {
	if _, exists := g.Nodes[id]; !exists {
		g.Nodes[id] = &Node{ID: id, Label: id}
	}
}

// AddEdge adds a directed edge, creating endpoint nodes as needed.
// Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	e := Edge{From: from, To: to}
	if g.edgeSet[e] {
		return
	}
	g.EnsureNode(from)
	g.EnsureNode(to)
	g.Edges = append(g.Edges, &Edge{From: from, To: to})
	g.edgeSet[e] = true
	g.out[from] = insertSorted(g.out[from], to)
	g.in[to] = insertSorted(g.in[to], from)
}

// HasNode reports whether the node ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.Nodes[id]
	return ok
}

// HasEdge reports whether the directed edge exists.
func (g *Graph) HasEdge(from, to string) bool {
	return g.edgeSet[Edge{From: from, To: to}]
}

// Successors returns the out-neighbors of id in lexicographic order.
// The returned slice is shared; callers must not mutate it.
func (g *Graph) Successors(id string) []string {
	return g.out[id]
}

// Predecessors returns the in-neighbors of id in lexicographic order.
// The returned slice is shared; callers must not mutate it.
func (g *Graph) Predecessors(id string) []string {
	return g.in[id]
}

// NodeIDs returns all node IDs in lexicographic order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// graphDoc is the serialized shape of a Graph.
type graphDoc struct {
	Nodes map[string]*Node `json:"nodes"`
	Edges []*Edge          `json:"edges"`
}

// UnmarshalJSON rebuilds the adjacency indexes after decoding.
func (g *Graph) UnmarshalJSON(data []byte) error {
	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	fresh := NewGraph()
	for _, n := range doc.Nodes {
		if n == nil || n.ID == "" {
			return fmt.Errorf("graph document contains a node without an id")
		}
		fresh.AddNode(n)
	}
	for _, e := range doc.Edges {
		if e == nil || e.From == "" || e.To == "" {
			return fmt.Errorf("graph document contains an edge without endpoints")
		}
		fresh.AddEdge(e.From, e.To)
	}
	*g = *fresh
	return nil
}

// MarshalJSON serializes nodes and edges only.
func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(graphDoc{Nodes: g.Nodes, Edges: g.Edges})
}

func insertSorted(list []string, v string) []string {
	i := sort.SearchStrings(list, v)
	if i < len(list) && list[i] == v {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}
