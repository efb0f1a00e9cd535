package testutil

import (
	"context"
	"errors"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/toolpick"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMockTool(t *testing.T) {
	m := &MockTool{
		NameVal:   "test_tool",
		DescVal:   "For tests",
		ParamsVal: map[string]any{"type": "object"},
	}
	assert.Equal(t, "test_tool", m.Name())
	assert.Equal(t, "For tests", m.Description())
	assert.Equal(t, map[string]any{"type": "object"}, m.Parameters())

	empty := &MockTool{}
	assert.Equal(t, "mock", empty.Name())
	assert.Empty(t, empty.Parameters())
}

func TestMockTool_FromTool(t *testing.T) {
	m := &MockTool{
		NameVal: "lookup",
		DescVal: "Look something up",
		ParamsVal: map[string]any{
			"type":       "object",
			"properties": map[string]any{"key": map[string]any{"type": "string"}},
			"required":   []any{"key"},
		},
	}
	c := NewTestContract(t, []toolpick.Descriptor{toolpick.FromTool(m)})
	assert.Equal(t, []string{"lookup"}, c.ActionNames())
}

func TestMockClient_Call(t *testing.T) {
	c := NewTestContract(t, []toolpick.Descriptor{MustParseFunction(t, WeatherJSON)}, toolpick.WithReply())
	final := SnapshotJSON(toolpick.DefaultSlot, "get_weather", map[string]any{"location": "Hanoi"})
	m := &MockClient{Final: final}

	out, err := m.Call(context.Background(), toolpick.Request{Contract: c})
	require.NoError(t, err)
	assert.JSONEq(t, final, string(out))
	require.Len(t, m.Requests(), 1)
	assert.Same(t, c, m.Requests()[0].Contract)

	m = &MockClient{Snapshots: ReplySnapshots(toolpick.DefaultSlot, "a", "b")}
	out, err = m.Call(context.Background(), toolpick.Request{})
	require.NoError(t, err)
	snap, err := toolpick.DecodeSnapshot(out, toolpick.DefaultSlot)
	require.NoError(t, err)
	assert.Equal(t, "ab", snap.Arguments["content"])

	boom := errors.New("boom")
	_, err = (&MockClient{CallErr: boom}).Call(context.Background(), toolpick.Request{})
	require.ErrorIs(t, err, boom)
}

func TestMockClient_Stream(t *testing.T) {
	m := &MockClient{
		Snapshots: ReplySnapshots(toolpick.DefaultSlot, "Hel", "lo"),
		StreamErr: errors.New("eof"),
	}
	var got []string
	var hooks []int
	m.OnSnapshot = func(i int) { hooks = append(hooks, i) }
	err := m.Stream(context.Background(), toolpick.Request{}, func(raw json.RawMessage) error {
		got = append(got, string(raw))
		return nil
	})
	require.EqualError(t, err, "eof")
	assert.Len(t, got, 2)
	assert.Equal(t, []int{0, 1}, hooks)

	stop := errors.New("stop")
	err = m.Stream(context.Background(), toolpick.Request{}, func(json.RawMessage) error { return stop })
	require.ErrorIs(t, err, stop)
	assert.Len(t, m.Requests(), 2)
}

func TestMockClient_StreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MockClient{
		Snapshots:  ReplySnapshots(toolpick.DefaultSlot, "a", "b", "c"),
		OnSnapshot: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}
	var n int
	err := m.Stream(ctx, toolpick.Request{}, func(json.RawMessage) error {
		n++
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}

func TestSnapshotJSON(t *testing.T) {
	assert.JSONEq(t, `{"slot": {"name": null, "arguments": null}}`, SnapshotJSON("slot", "", nil))
	assert.JSONEq(t, `{"slot": {"name": "x", "arguments": {"a": 1}}}`, SnapshotJSON("slot", "x", map[string]any{"a": 1}))
}
