// Package testutil provides test helpers for toolpick (MockTool, MockClient).
package testutil

import (
	"context"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/skosovsky/toolpick"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal map[string]any
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the parameters schema (or empty map).
func (m *MockTool) Parameters() map[string]any {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return map[string]any{}
}

// Ensure MockTool implements Tool.
var _ toolpick.Tool = (*MockTool)(nil)

// MockClient replays scripted model outputs. Call returns Final (or the last
// of Snapshots when Final is empty); Stream yields every entry of Snapshots in
// order, then returns StreamErr. Requests are recorded.
type MockClient struct {
	Snapshots []string
	Final     string
	CallErr   error
	StreamErr error
	// OnSnapshot, when set, runs before the i-th snapshot is yielded.
	OnSnapshot func(i int)

	mu       sync.Mutex
	requests []toolpick.Request
}

// Call records req and returns the scripted final output.
func (m *MockClient) Call(ctx context.Context, req toolpick.Request) (json.RawMessage, error) {
	m.record(req)
	if m.CallErr != nil {
		return nil, m.CallErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := m.Final
	if out == "" && len(m.Snapshots) > 0 {
		out = m.Snapshots[len(m.Snapshots)-1]
	}
	return json.RawMessage(out), nil
}

// Stream records req and yields the scripted snapshots.
func (m *MockClient) Stream(ctx context.Context, req toolpick.Request, yield func(json.RawMessage) error) error {
	m.record(req)
	for i, s := range m.Snapshots {
		if m.OnSnapshot != nil {
			m.OnSnapshot(i)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := yield(json.RawMessage(s)); err != nil {
			return err
		}
	}
	return m.StreamErr
}

// Requests returns the requests received so far.
func (m *MockClient) Requests() []toolpick.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]toolpick.Request(nil), m.requests...)
}

func (m *MockClient) record(req toolpick.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// Ensure MockClient implements Client.
var _ toolpick.Client = (*MockClient)(nil)
