package redis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/gjbm2/dagnet-sub000/pkg/store"
)

func newTestCachedStore(t *testing.T) (*CachedStore, *store.Store, *GraphCache) {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "dagnet.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	cache := newTestCache(t)
	return NewCachedStore(st, cache), st, cache
}

func TestCachedStorePutPopulatesCache(t *testing.T) {
	cs, _, cache := newTestCachedStore(t)
	ctx := context.Background()

	version, err := cs.PutGraph(ctx, "signup", diamond())
	if err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("version = %d, want 1", version)
	}

	g, cachedVersion, ok := cache.Get(ctx, "signup")
	if !ok || cachedVersion != 1 || g.Len() != 4 {
		t.Fatalf("cache not populated: ok=%v version=%d", ok, cachedVersion)
	}
}

func TestCachedStoreReadsThroughOnMiss(t *testing.T) {
	cs, st, cache := newTestCachedStore(t)
	ctx := context.Background()

	// Write behind the cache's back, as a second daemon would.
	if _, err := st.PutGraph(ctx, "checkout", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}

	g, version, err := cs.GetGraph(ctx, "checkout")
	if err != nil {
		t.Fatalf("GetGraph failed: %v", err)
	}
	if version != 1 || g.Len() != 4 {
		t.Fatalf("read through returned version=%d len=%d", version, g.Len())
	}

	if _, _, ok := cache.Get(ctx, "checkout"); !ok {
		t.Fatalf("miss did not backfill the cache")
	}
}

func TestCachedStoreDeleteInvalidates(t *testing.T) {
	cs, _, cache := newTestCachedStore(t)
	ctx := context.Background()

	if _, err := cs.PutGraph(ctx, "signup", diamond()); err != nil {
		t.Fatalf("PutGraph failed: %v", err)
	}
	if err := cs.DeleteGraph(ctx, "signup"); err != nil {
		t.Fatalf("DeleteGraph failed: %v", err)
	}

	if _, _, ok := cache.Get(ctx, "signup"); ok {
		t.Fatalf("delete left the cached snapshot behind")
	}
	if _, _, err := cs.GetGraph(ctx, "signup"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := cs.DeleteGraph(ctx, "signup"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for double delete, got %v", err)
	}
}
