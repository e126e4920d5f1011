package redis

import (
	"context"

	"github.com/gjbm2/dagnet-sub000/pkg/graph"
	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

// CachedStore layers the snapshot cache over the SQLite catalog: writes
// go through and refresh the cache, graph reads try the cache first.
// Listings and the audit log always hit SQLite.
type CachedStore struct {
	store *store.Store
	cache *GraphCache
}

func NewCachedStore(st *store.Store, cache *GraphCache) *CachedStore {
	return &CachedStore{store: st, cache: cache}
}

func (c *CachedStore) PutGraph(ctx context.Context, name string, g *graph.Graph) (int, error) {
	version, err := c.store.PutGraph(ctx, name, g)
	if err != nil {
		return 0, err
	}
	c.cache.Set(ctx, name, g, version)
	return version, nil
}

func (c *CachedStore) GetGraph(ctx context.Context, name string) (*graph.Graph, int, error) {
	if g, version, ok := c.cache.Get(ctx, name); ok {
		return g, version, nil
	}
	g, version, err := c.store.GetGraph(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	c.cache.Set(ctx, name, g, version)
	return g, version, nil
}

func (c *CachedStore) DeleteGraph(ctx context.Context, name string) error {
	if err := c.store.DeleteGraph(ctx, name); err != nil {
		return err
	}
	c.cache.Delete(ctx, name)
	return nil
}

func (c *CachedStore) ListGraphs(ctx context.Context) ([]store.GraphInfo, error) {
	return c.store.ListGraphs(ctx)
}

func (c *CachedStore) ListCompilations(ctx context.Context, filter store.CompilationFilter) ([]store.CompilationEvent, error) {
	return c.store.ListCompilations(ctx, filter)
}
