package funnel

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gjbm2/dagnet-sub000/pkg/provider"
	"github.com/gjbm2/dagnet-sub000/pkg/query"
)

// Config is the top-level structure of dagnet.json
type Config struct {
	// Weights steer remedy selection; zero fields fall back to defaults.
	Weights query.Weights `json:"weights"`

	// MaxChecks caps reachability checks per synthesis.
	MaxChecks int `json:"max_checks,omitempty"`

	// PreserveShape forbids literal-family rewrites globally.
	PreserveShape bool `json:"preserve_shape,omitempty"`

	// Providers extends or overrides the builtin backend catalog.
	Providers []provider.Definition `json:"providers,omitempty"`

	// Connections binds connection names to provider ids.
	Connections map[string]string `json:"connections,omitempty"`
}

// LoadConfig reads and parses an engine config file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// BuildCatalog returns the builtin catalog extended with the config's
// providers and connection bindings.
func (c *Config) BuildCatalog() (*provider.Catalog, error) {
	catalog := provider.NewCatalog()
	for _, def := range c.Providers {
		if err := catalog.Register(def); err != nil {
			return nil, fmt.Errorf("provider %q: %w", def.ID, err)
		}
	}
	for name, id := range c.Connections {
		if err := catalog.BindConnection(name, provider.ProviderID(id)); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}
