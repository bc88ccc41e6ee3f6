package integration

import (
	"context"
	"fmt"
	"sync"
)

// MockSource is an in-memory Source implementation for tests.
// Pages are scripted per connection and served in order; FailAtPage injects
// an error on the given 1-based page request.
type MockSource struct {
	mu sync.Mutex

	Connections []Connection
	Pages       map[string][]Page // connectionID -> pages in order
	FailAtPage  map[string]int    // connectionID -> 1-based page index that errors

	// Updates records every UpdateTask call as "connectionID/externalID/status"
	Updates []string

	// UpdateErr, when set, is returned by every UpdateTask call
	UpdateErr error

	pageIndex map[string]int
}

// NewMockSource creates an empty mock source
func NewMockSource() *MockSource {
	return &MockSource{
		Pages:      make(map[string][]Page),
		FailAtPage: make(map[string]int),
		pageIndex:  make(map[string]int),
	}
}

// AddConnection registers a connection with the given integration key
func (m *MockSource) AddConnection(id, integrationID, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Connections = append(m.Connections, Connection{
		ID:          id,
		Integration: IntegrationInfo{ID: integrationID, Key: key},
	})
}

// AddPage appends a scripted page for a connection
func (m *MockSource) AddPage(connectionID string, page Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pages[connectionID] = append(m.Pages[connectionID], page)
}

// FindConnections implements Source
func (m *MockSource) FindConnections(ctx context.Context, integrationID string) ([]Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found []Connection
	for _, conn := range m.Connections {
		if integrationID == "" || conn.Integration.ID == integrationID {
			found = append(found, conn)
		}
	}
	return found, nil
}

// ListTasks implements Source by replaying scripted pages in order.
// The cursor is ignored for sequencing; the mock trusts callers to pass the
// cursor from the previous page the way the real platform requires.
func (m *MockSource) ListTasks(ctx context.Context, conn Connection, cursor string) (*Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.pageIndex[conn.ID]
	m.pageIndex[conn.ID] = idx + 1

	if failAt, ok := m.FailAtPage[conn.ID]; ok && idx+1 == failAt {
		return nil, &APIError{Operation: "ListTasks", StatusCode: 502, Message: "upstream unavailable"}
	}

	pages := m.Pages[conn.ID]
	if idx >= len(pages) {
		if len(pages) == 0 {
			// Zero scripted pages: a single empty last page
			return &Page{}, nil
		}
		return nil, fmt.Errorf("mock source: page %d requested but only %d scripted", idx+1, len(pages))
	}

	page := pages[idx]
	return &page, nil
}

// UpdateTask implements Source
func (m *MockSource) UpdateTask(ctx context.Context, conn Connection, externalID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Updates = append(m.Updates, fmt.Sprintf("%s/%s/%s", conn.ID, externalID, status))
	return nil
}

// Reset clears page progress so a connection can be drained again
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageIndex = make(map[string]int)
}
