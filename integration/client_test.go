package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestFindConnections tests connection listing against a fake platform
func TestFindConnections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/connections" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected bearer auth header, got '%s'", got)
		}
		if got := r.URL.Query().Get("integrationId"); got != "int-1" {
			t.Errorf("Expected integrationId filter, got '%s'", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []Connection{
				{ID: "conn-1", Integration: IntegrationInfo{ID: "int-1", Key: "asana"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", nil)

	connections, err := client.FindConnections(context.Background(), "int-1")
	if err != nil {
		t.Fatalf("Failed to find connections: %v", err)
	}
	if len(connections) != 1 {
		t.Fatalf("Expected 1 connection, got %d", len(connections))
	}
	if connections[0].ID != "conn-1" {
		t.Errorf("Expected connection 'conn-1', got '%s'", connections[0].ID)
	}
	if connections[0].Integration.Key != "asana" {
		t.Errorf("Expected integration key 'asana', got '%s'", connections[0].Integration.Key)
	}
}

func testConn(id, key string) Connection {
	return Connection{ID: id, Integration: IntegrationInfo{ID: "int-1", Key: key}}
}

// TestListTasks tests the paged action call including cursor passing
func TestListTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/connections/conn-1/actions/list-tasks/run" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}

		var input map[string]string
		_ = json.NewDecoder(r.Body).Decode(&input)

		page := Page{Records: []Record{{Fields: RecordFields{ID: "t1", Title: "Task"}}}}
		if input["cursor"] == "" {
			page.Cursor = "page-2"
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"output": page})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", nil)
	ctx := context.Background()

	first, err := client.ListTasks(ctx, testConn("conn-1", "asana"), "")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if first.Cursor != "page-2" {
		t.Errorf("Expected cursor 'page-2', got '%s'", first.Cursor)
	}
	if len(first.Records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(first.Records))
	}

	last, err := client.ListTasks(ctx, testConn("conn-1", "asana"), "page-2")
	if err != nil {
		t.Fatalf("Failed to list second page: %v", err)
	}
	if last.Cursor != "" {
		t.Errorf("Expected empty cursor on last page, got '%s'", last.Cursor)
	}
}

// TestUpdateTask tests the update action input shape
func TestUpdateTask(t *testing.T) {
	var gotInput map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/connections/conn-1/actions/update-tasks/run" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotInput)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"output": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", nil)

	if err := client.UpdateTask(context.Background(), testConn("conn-1", "asana"), "t1", "done"); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if gotInput["id"] != "t1" || gotInput["status"] != "done" {
		t.Errorf("Unexpected update input: %v", gotInput)
	}
}

// TestActionNamesFollowCatalog tests that a per-integration action override
// in the catalog changes the endpoints the client hits, and that unknown
// keys fall back to the defaults
func TestActionNamesFollowCatalog(t *testing.T) {
	catalog, err := parseCatalog([]byte(`
defaults:
  list_action: list-tasks
  update_action: update-tasks
integrations:
  - key: asana
    name: Asana
    actions:
      list: asana-list
      update: asana-update
`))
	if err != nil {
		t.Fatalf("Failed to parse catalog: %v", err)
	}

	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_, _ = w.Write([]byte(`{"output": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", catalog)
	ctx := context.Background()

	if _, err := client.ListTasks(ctx, testConn("conn-1", "asana"), ""); err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if err := client.UpdateTask(ctx, testConn("conn-1", "asana"), "t1", "done"); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}
	if _, err := client.ListTasks(ctx, testConn("conn-2", "monday"), ""); err != nil {
		t.Fatalf("Failed to list tasks with default action: %v", err)
	}

	want := []string{
		"/connections/conn-1/actions/asana-list/run",
		"/connections/conn-1/actions/asana-update/run",
		"/connections/conn-2/actions/list-tasks/run",
	}
	if len(paths) != len(want) {
		t.Fatalf("Expected %d requests, got %d: %v", len(want), len(paths), paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Request %d hit %s, want %s", i, paths[i], want[i])
		}
	}
}

// TestArchiveUnarchiveConnection tests the disconnect toggle requests
func TestArchiveUnarchiveConnection(t *testing.T) {
	type patchCall struct {
		path         string
		disconnected bool
	}
	var calls []patchCall

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("Expected PATCH, got %s", r.Method)
		}
		if r.URL.Path == "/connections/gone" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}

		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		calls = append(calls, patchCall{path: r.URL.Path, disconnected: body["disconnected"]})
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", nil)
	ctx := context.Background()

	if err := client.ArchiveConnection(ctx, "conn-1"); err != nil {
		t.Fatalf("Failed to archive connection: %v", err)
	}
	if err := client.UnarchiveConnection(ctx, "conn-1"); err != nil {
		t.Fatalf("Failed to unarchive connection: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(calls))
	}
	if calls[0].path != "/connections/conn-1" || !calls[0].disconnected {
		t.Errorf("Unexpected archive request: %+v", calls[0])
	}
	if calls[1].path != "/connections/conn-1" || calls[1].disconnected {
		t.Errorf("Unexpected unarchive request: %+v", calls[1])
	}

	err := client.ArchiveConnection(ctx, "gone")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		t.Errorf("Expected not-found error for missing connection, got %v", err)
	}
}

// TestAPIErrorClassification tests status-code based error helpers
func TestAPIErrorClassification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", nil)

	_, err := client.ListTasks(context.Background(), testConn("missing", "asana"), "")
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if !apiErr.IsNotFound() {
		t.Errorf("Expected IsNotFound for status %d", apiErr.StatusCode)
	}
	if apiErr.IsUnauthorized() || apiErr.IsServerError() {
		t.Error("404 misclassified as unauthorized or server error")
	}
}

// TestServerErrorIncludesBody tests that 5xx errors keep the response body
func TestServerErrorIncludesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-token", nil)

	_, err := client.FindConnections(context.Background(), "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if !apiErr.IsServerError() {
		t.Errorf("Expected server error classification for %d", apiErr.StatusCode)
	}
	if apiErr.Body == "" {
		t.Error("Expected response body to be captured")
	}
}
