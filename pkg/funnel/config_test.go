package funnel

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dagnet.json")
	body := `{
		"weights": {"visited": 1.0, "exclude": 3.0, "visited_any": 1.5},
		"max_checks": 200,
		"providers": [{"id": "clickhouse", "native_exclude": true}],
		"connections": {"prod": "clickhouse", "growth": "amplitude"}
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MaxChecks != 200 || cfg.Weights.Exclude != 3.0 {
		t.Fatalf("config = %+v", cfg)
	}

	catalog, err := cfg.BuildCatalog()
	if err != nil {
		t.Fatalf("BuildCatalog failed: %v", err)
	}
	if !catalog.SupportsNativeExclude("clickhouse") {
		t.Fatalf("registered provider missing from catalog")
	}
	def, ok := catalog.Resolve("growth")
	if !ok || def.ID != "amplitude" {
		t.Fatalf("Resolve(growth) = %+v, %v", def, ok)
	}
}

func TestLoadConfigRejectsBadBindings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dagnet.json")
	body := `{"connections": {"prod": "nowhere"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if _, err := cfg.BuildCatalog(); err == nil {
		t.Fatalf("binding to an unknown provider must fail")
	}
}
