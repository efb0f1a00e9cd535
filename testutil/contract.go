package testutil

import (
	"io"
	"log/slog"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/skosovsky/toolpick"
)

// WeatherJSON is a function wrapper used across tests: one required string,
// one optional titled enum.
const WeatherJSON = `{
  "type": "function",
  "function": {
    "name": "get_weather",
    "description": "Get the current weather for a location",
    "parameters": {
      "type": "object",
      "properties": {
        "location": {"type": "string", "description": "City name"},
        "unit": {"type": "string", "title": "Unit", "enum": ["celsius", "fahrenheit"]}
      },
      "required": ["location"]
    }
  }
}`

// MustParseFunction parses a function description or fails the test.
func MustParseFunction(tb testing.TB, data string) toolpick.FunctionSpec {
	tb.Helper()
	spec, err := toolpick.ParseFunction([]byte(data))
	if err != nil {
		tb.Fatalf("parse function: %v", err)
	}
	return spec
}

// NewTestContract assembles actions under toolpick.DefaultSlot with a silent
// logger, failing the test on error.
func NewTestContract(tb testing.TB, actions []toolpick.Descriptor, opts ...toolpick.AssembleOption) *toolpick.Contract {
	tb.Helper()
	opts = append([]toolpick.AssembleOption{toolpick.WithLogger(DiscardLogger())}, opts...)
	c, err := toolpick.Assemble(actions, toolpick.DefaultSlot, opts...)
	if err != nil {
		tb.Fatalf("assemble: %v", err)
	}
	return c
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SnapshotJSON renders one model output object holding an action in slot.
func SnapshotJSON(slot, name string, args map[string]any) string {
	inner := map[string]any{"name": name, "arguments": args}
	if name == "" {
		inner["name"] = nil
	}
	b, err := json.Marshal(map[string]any{slot: inner})
	if err != nil {
		panic(err)
	}
	return string(b)
}

// ReplySnapshots renders a reply stream whose content grows by each part in turn.
func ReplySnapshots(slot string, parts ...string) []string {
	out := make([]string, 0, len(parts))
	content := ""
	for _, p := range parts {
		content += p
		out = append(out, SnapshotJSON(slot, toolpick.ReplyActionName, map[string]any{"content": content}))
	}
	return out
}
