package integration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	_ "embed"
)

//go:embed integrations.yaml
var embeddedCatalog []byte

// Integration describes one supported external system in the catalog
type Integration struct {
	Key     string            `yaml:"key"`
	Name    string            `yaml:"name"`
	Actions map[string]string `yaml:"actions,omitempty"`
}

// Catalog holds the set of supported integrations and their action names.
// The embedded default covers the hosted platform's unified actions; a
// user-provided YAML file can override or extend it.
type Catalog struct {
	Defaults struct {
		ListAction   string `yaml:"list_action"`
		UpdateAction string `yaml:"update_action"`
	} `yaml:"defaults"`
	Integrations []Integration `yaml:"integrations"`
}

// DefaultCatalog parses the embedded catalog. The embedded file is part of
// the build, so a parse failure is a programming error.
func DefaultCatalog() *Catalog {
	catalog, err := parseCatalog(embeddedCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded integrations.yaml is invalid: %v", err))
	}
	return catalog
}

// LoadCatalog reads a catalog from a YAML file, falling back to the
// embedded default when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if catalog.Defaults.ListAction == "" {
		catalog.Defaults.ListAction = "list-tasks"
	}
	if catalog.Defaults.UpdateAction == "" {
		catalog.Defaults.UpdateAction = "update-tasks"
	}

	return &catalog, nil
}

// Lookup returns the integration with the given key, or nil when unknown
func (c *Catalog) Lookup(key string) *Integration {
	for i := range c.Integrations {
		if c.Integrations[i].Key == key {
			return &c.Integrations[i]
		}
	}
	return nil
}

// Keys returns the catalog's integration keys in declaration order
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.Integrations))
	for _, integ := range c.Integrations {
		keys = append(keys, integ.Key)
	}
	return keys
}

// ListAction returns the list-tasks action name for an integration key,
// falling back to the catalog default
func (c *Catalog) ListAction(key string) string {
	if integ := c.Lookup(key); integ != nil {
		if action, ok := integ.Actions["list"]; ok && action != "" {
			return action
		}
	}
	return c.Defaults.ListAction
}

// UpdateAction returns the update-tasks action name for an integration key,
// falling back to the catalog default
func (c *Catalog) UpdateAction(key string) string {
	if integ := c.Lookup(key); integ != nil {
		if action, ok := integ.Actions["update"]; ok && action != "" {
			return action
		}
	}
	return c.Defaults.UpdateAction
}
