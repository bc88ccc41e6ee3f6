package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// APIError represents an error returned by the integration platform.
// It provides structured error information including HTTP status codes,
// operation context, and the response body for debugging.
type APIError struct {
	Operation  string // e.g., "ListTasks", "FindConnections"
	StatusCode int    // HTTP status code (0 if not an HTTP error)
	Message    string // Human-readable error message
	Body       string // Optional: response body for debugging
	Err        error  // Optional: underlying error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the underlying error for error wrapping
func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a 404 Not Found
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized returns true if the error is a 401 Unauthorized or 403 Forbidden
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsServerError returns true if the error is a 5xx server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Connection is an authorized link between a local user and one external
// integration account on the platform
type Connection struct {
	ID           string          `json:"id"`
	Disconnected bool            `json:"disconnected,omitempty"`
	Integration  IntegrationInfo `json:"integration"`
}

// IntegrationInfo identifies which external system a connection belongs to
type IntegrationInfo struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// Record is one external task record as returned by a list-tasks action
type Record struct {
	ID          string       `json:"id"`
	Name        string       `json:"name,omitempty"`
	URI         string       `json:"uri,omitempty"`
	CreatedTime string       `json:"createdTime,omitempty"` // RFC3339
	UpdatedTime string       `json:"updatedTime,omitempty"` // RFC3339
	Fields      RecordFields `json:"fields"`
}

// RecordFields holds the unified field set the platform extracts per task
type RecordFields struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Status          string `json:"status"`
	DueDate         string `json:"dueDate"`
	FreelancerEmail string `json:"freelancerEmail,omitempty"`
}

// Page is one page of a paged action result. An empty Cursor signals the
// last page.
type Page struct {
	Cursor  string   `json:"cursor"`
	Records []Record `json:"records"`
}

// Source is the narrow interface the sync core needs from the integration
// platform. *Client implements it; tests use MockSource. Actions take the
// full Connection because the integration key selects the catalog's action
// names.
type Source interface {
	FindConnections(ctx context.Context, integrationID string) ([]Connection, error)
	ListTasks(ctx context.Context, conn Connection, cursor string) (*Page, error)
	UpdateTask(ctx context.Context, conn Connection, externalID, status string) error
}

// Client handles HTTP communication with the hosted integration platform
type Client struct {
	baseURL    string
	apiToken   string
	catalog    *Catalog
	httpClient *http.Client
}

// NewClient creates a new integration platform client
func NewClient(baseURL, apiToken string, catalog *Catalog) *Client {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		catalog:  catalog,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// connectionsResponse is the wire shape of a connections listing
type connectionsResponse struct {
	Items []Connection `json:"items"`
}

// actionResponse is the wire shape of an action run result
type actionResponse struct {
	Output json.RawMessage `json:"output"`
}

// doRequest performs an HTTP request with authentication
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	reqURL := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add authentication header
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

// FindConnections lists the user's connections, optionally filtered to one
// integration id
func (c *Client) FindConnections(ctx context.Context, integrationID string) ([]Connection, error) {
	endpoint := "/connections"
	if integrationID != "" {
		endpoint += "?integrationId=" + url.QueryEscape(integrationID)
	}

	resp, err := c.doRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, &APIError{Operation: "FindConnections", Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			Operation:  "FindConnections",
			StatusCode: resp.StatusCode,
			Message:    "unexpected response",
			Body:       string(body),
		}
	}

	var out connectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &APIError{Operation: "FindConnections", Message: "failed to decode response", Err: err}
	}

	return out.Items, nil
}

// runAction executes a named action on one connection and decodes its output
func (c *Client) runAction(ctx context.Context, operation, connectionID, action string, input, output interface{}) error {
	endpoint := fmt.Sprintf("/connections/%s/actions/%s/run", url.PathEscape(connectionID), url.PathEscape(action))

	resp, err := c.doRequest(ctx, "POST", endpoint, input)
	if err != nil {
		return &APIError{Operation: operation, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Message: "connection or action not found"}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    "action run failed",
			Body:       string(body),
		}
	}

	if output == nil {
		return nil
	}

	var out actionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return &APIError{Operation: operation, Message: "failed to decode response", Err: err}
	}
	if err := json.Unmarshal(out.Output, output); err != nil {
		return &APIError{Operation: operation, Message: "failed to decode action output", Err: err}
	}

	return nil
}

// ListTasks requests one page of tasks from a connection's list action,
// passing the current cursor (empty for the first page). The action name
// comes from the catalog entry for the connection's integration.
func (c *Client) ListTasks(ctx context.Context, conn Connection, cursor string) (*Page, error) {
	input := map[string]string{}
	if cursor != "" {
		input["cursor"] = cursor
	}

	var page Page
	action := c.catalog.ListAction(conn.Integration.Key)
	if err := c.runAction(ctx, "ListTasks", conn.ID, action, input, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UpdateTask pushes a status change for one external task through the
// connection's update action
func (c *Client) UpdateTask(ctx context.Context, conn Connection, externalID, status string) error {
	input := map[string]string{
		"id":     externalID,
		"status": status,
	}
	action := c.catalog.UpdateAction(conn.Integration.Key)
	return c.runAction(ctx, "UpdateTask", conn.ID, action, input, nil)
}

// ArchiveConnection disconnects a connection on the platform
func (c *Client) ArchiveConnection(ctx context.Context, connectionID string) error {
	return c.setConnectionState(ctx, "ArchiveConnection", connectionID, true)
}

// UnarchiveConnection re-opens a previously archived connection
func (c *Client) UnarchiveConnection(ctx context.Context, connectionID string) error {
	return c.setConnectionState(ctx, "UnarchiveConnection", connectionID, false)
}

func (c *Client) setConnectionState(ctx context.Context, operation, connectionID string, disconnected bool) error {
	endpoint := "/connections/" + url.PathEscape(connectionID)
	body := map[string]bool{"disconnected": disconnected}

	resp, err := c.doRequest(ctx, "PATCH", endpoint, body)
	if err != nil {
		return &APIError{Operation: operation, Message: err.Error(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Message: "connection not found"}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    "unexpected response",
			Body:       string(respBody),
		}
	}

	return nil
}
