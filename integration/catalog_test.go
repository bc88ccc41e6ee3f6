package integration

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultCatalog tests the embedded catalog parses and has entries
func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	if len(catalog.Keys()) == 0 {
		t.Fatal("Expected embedded catalog to have integrations")
	}
	if catalog.Lookup("asana") == nil {
		t.Error("Expected 'asana' in the embedded catalog")
	}
	if catalog.Lookup("unknown") != nil {
		t.Error("Expected nil for unknown integration key")
	}
}

// TestCatalogActionDefaults tests default action name fallback
func TestCatalogActionDefaults(t *testing.T) {
	catalog := DefaultCatalog()

	if action := catalog.ListAction("asana"); action != "list-tasks" {
		t.Errorf("Expected default list action, got '%s'", action)
	}
	if action := catalog.UpdateAction("unknown"); action != "update-tasks" {
		t.Errorf("Expected default update action for unknown key, got '%s'", action)
	}
}

// TestLoadCatalogOverride tests loading a user catalog with custom actions
func TestLoadCatalogOverride(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "catalog.yaml")

	data := `
defaults:
  list_action: fetch-items
integrations:
  - key: jira
    name: Jira
    actions:
      update: transition-issue
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write catalog file: %v", err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	if action := catalog.ListAction("jira"); action != "fetch-items" {
		t.Errorf("Expected overridden default list action, got '%s'", action)
	}
	if action := catalog.UpdateAction("jira"); action != "transition-issue" {
		t.Errorf("Expected per-integration update action, got '%s'", action)
	}
	// Missing update default falls back to the built-in name
	if action := catalog.UpdateAction("other"); action != "update-tasks" {
		t.Errorf("Expected built-in update default, got '%s'", action)
	}
}

// TestLoadCatalogMissingFile tests the error path
func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog("/nonexistent/catalog.yaml")
	if err == nil {
		t.Fatal("Expected error for missing catalog file")
	}
}
