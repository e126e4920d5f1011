// Package provider catalogs the analytics backends compiled queries are
// shipped to, keyed by what their funnel APIs can natively express.
package provider

import (
	"fmt"
	"sync"
)

// ProviderID identifies a specific analytics backend integration
// (e.g., "amplitude", "warehouse").
type ProviderID string

// DefaultTermCap bounds the signed-term clauses shipped to a backend
// whose definition does not set its own cap.
const DefaultTermCap = 64

// Definition describes one backend's query capabilities.
type Definition struct {
	ID ProviderID `json:"id"`

	// NativeExclude reports whether the backend can express "never
	// visited" directly. Without it, exclude literals must be compiled
	// into signed inclusion-exclusion terms.
	NativeExclude bool `json:"native_exclude"`

	// TermCap is the backend's per-query clause limit; zero means
	// DefaultTermCap.
	TermCap int `json:"term_cap,omitempty"`
}

// Catalog maps backend definitions and named connections onto them.
// Unknown backends are treated as the least capable: no native exclude.
type Catalog struct {
	mu       sync.RWMutex
	defs     map[ProviderID]Definition
	bindings map[string]ProviderID
}

// Builtin returns the definitions the catalog is seeded with.
func Builtin() []Definition {
	return []Definition{
		{ID: "amplitude", NativeExclude: false, TermCap: 25},
		{ID: "mixpanel", NativeExclude: false, TermCap: 20},
		{ID: "ga4", NativeExclude: false, TermCap: 16},
		{ID: "warehouse", NativeExclude: true},
	}
}

// NewCatalog returns a catalog seeded with the builtin definitions.
func NewCatalog() *Catalog {
	c := &Catalog{
		defs:     make(map[ProviderID]Definition),
		bindings: make(map[string]ProviderID),
	}
	for _, d := range Builtin() {
		c.defs[d.ID] = d
	}
	return c
}

// Register adds or replaces a backend definition.
func (c *Catalog) Register(def Definition) error {
	if def.ID == "" {
		return fmt.Errorf("provider definition needs an id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[def.ID] = def
	return nil
}

// Lookup returns the definition for id.
func (c *Catalog) Lookup(id ProviderID) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[id]
	return def, ok
}

// BindConnection maps a named connection onto a backend definition.
func (c *Catalog) BindConnection(name string, id ProviderID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.defs[id]; !ok {
		return fmt.Errorf("unknown provider %q for connection %q", id, name)
	}
	c.bindings[name] = id
	return nil
}

// Resolve returns the definition bound to a connection name.
func (c *Catalog) Resolve(conn string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.bindings[conn]
	if !ok {
		return Definition{}, false
	}
	def, ok := c.defs[id]
	return def, ok
}

// SupportsNativeExclude reports whether the backend can express exclude
// literals itself. Unknown backends report false, which routes them
// through the rewrite compiler.
func (c *Catalog) SupportsNativeExclude(id ProviderID) bool {
	def, ok := c.Lookup(id)
	return ok && def.NativeExclude
}

// TermCap returns the backend's clause limit, falling back to the
// default for unknown backends or unset caps.
func (c *Catalog) TermCap(id ProviderID) int {
	def, ok := c.Lookup(id)
	if !ok || def.TermCap <= 0 {
		return DefaultTermCap
	}
	return def.TermCap
}
