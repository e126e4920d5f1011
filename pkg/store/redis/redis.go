// Package redis caches the latest graph snapshots so read-heavy callers
// can resolve graphs without touching SQLite. The cache is best-effort:
// failures are logged and readers fall back to the catalog.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/gjbm2/dagnet-sub000/pkg/graph"
)

const graphsSet = "dagnet:graphs"

type snapshot struct {
	Version int             `json:"version"`
	Graph   json.RawMessage `json:"graph"`
}

type GraphCache struct {
	client *redis.Client
}

func NewGraphCache(client *redis.Client) *GraphCache {
	return &GraphCache{client: client}
}

func (c *GraphCache) makeKey(name string) string {
	return fmt.Sprintf("dagnet:graph:%s", name)
}

func (c *GraphCache) Set(ctx context.Context, name string, g *graph.Graph, version int) {
	payload, err := g.MarshalJSON()
	if err != nil {
		log.Printf("Failed to marshal graph %s: %v", name, err)
		return
	}
	data, err := json.Marshal(snapshot{Version: version, Graph: payload})
	if err != nil {
		log.Printf("Failed to marshal snapshot %s: %v", name, err)
		return
	}
	key := c.makeKey(name)
	if err := c.client.Set(ctx, key, data, 0).Err(); err != nil {
		log.Printf("Failed to SET key %s: %v", key, err)
		return
	}
	if err := c.client.SAdd(ctx, graphsSet, name).Err(); err != nil {
		log.Printf("Failed to SADD %s to set: %v", name, err)
	}
}

func (c *GraphCache) Get(ctx context.Context, name string) (*graph.Graph, int, bool) {
	key := c.makeKey(name)
	data, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Failed to GET key %s: %v", key, err)
		}
		return nil, 0, false
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		log.Printf("Failed to unmarshal snapshot from key %s: %v", key, err)
		return nil, 0, false
	}
	g := graph.NewGraph()
	if err := g.UnmarshalJSON(snap.Graph); err != nil {
		log.Printf("Failed to unmarshal graph from key %s: %v", key, err)
		return nil, 0, false
	}
	return g, snap.Version, true
}

func (c *GraphCache) Delete(ctx context.Context, name string) {
	key := c.makeKey(name)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("Failed to DEL key %s: %v", key, err)
	}
	if err := c.client.SRem(ctx, graphsSet, name).Err(); err != nil {
		log.Printf("Failed to SREM %s from set: %v", name, err)
	}
}

func (c *GraphCache) Names(ctx context.Context) []string {
	names, err := c.client.SMembers(ctx, graphsSet).Result()
	if err != nil {
		log.Printf("Failed to SMEMBERS %s: %v", graphsSet, err)
		return nil
	}
	return names
}

func (c *GraphCache) Clear(ctx context.Context) {
	names, err := c.client.SMembers(ctx, graphsSet).Result()
	if err != nil {
		log.Printf("Failed to SMEMBERS %s during clear: %v", graphsSet, err)
		return
	}
	keys := make([]string, 0, len(names)+1)
	for _, name := range names {
		keys = append(keys, c.makeKey(name))
	}
	keys = append(keys, graphsSet)
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to DEL keys: %v", err)
	}
}
