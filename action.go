package toolpick

import (
	"bytes"
	"maps"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Action is the single finalized result of a run: either the reply action with
// its text, or one of the offered actions with its arguments. Action values are
// immutable; accessors return copies.
type Action struct {
	name      string
	arguments map[string]any
}

// NewAction builds an Action from a name and arguments. The arguments are copied.
func NewAction(name string, arguments map[string]any) Action {
	return Action{name: name, arguments: cloneArguments(arguments)}
}

// Name returns the action's discriminant.
func (a Action) Name() string { return a.name }

// Arguments returns a deep copy of the action's arguments.
func (a Action) Arguments() map[string]any { return cloneArguments(a.arguments) }

// IsReply reports whether a is the reply action.
func (a Action) IsReply() bool { return a.name == ReplyActionName }

// Content returns the reply text, or "" for any other action.
func (a Action) Content() string {
	if !a.IsReply() {
		return ""
	}
	s, _ := a.arguments[fieldContent].(string)
	return s
}

// Decode decodes the arguments into v, typically a pointer to an argument struct.
func (a Action) Decode(v any) error {
	data, err := json.Marshal(a.arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// MarshalJSON encodes a as {"name": ..., "arguments": ...}.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(Snapshot{Name: a.name, Arguments: a.arguments})
}

// ToolCall converts a into an execution request with a fresh random ID.
func (a Action) ToolCall() (ToolCall, error) {
	args, err := json.Marshal(a.arguments)
	if err != nil {
		return ToolCall{}, err
	}
	return ToolCall{ID: uuid.NewString(), ToolName: a.name, Args: args}, nil
}

// Describe renders a for humans:
//
//	Tool `get_weather` was selected with arguments:
//	{
//	  location: "Hanoi"
//	}
func (a Action) Describe() string {
	return "Tool `" + a.name + "` was selected with arguments:\n" + formatArguments(a.arguments)
}

func (a Action) String() string { return a.Describe() }

// formatArguments pretty-prints args as JSON with unquoted keys.
func formatArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	var b strings.Builder
	if err := writeValue(&b, args, ""); err != nil {
		return "{}"
	}
	return b.String()
}

const indentStep = "  "

func writeValue(b *strings.Builder, v any, indent string) error {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			b.WriteString("{}")
			return nil
		}
		keys := slices.Sorted(maps.Keys(t))
		b.WriteString("{\n")
		for i, k := range keys {
			b.WriteString(indent + indentStep + k + ": ")
			if err := writeValue(b, t[k], indent+indentStep); err != nil {
				return err
			}
			if i < len(keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent + "}")
		return nil
	case []any:
		if len(t) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteString("[\n")
		for i, e := range t {
			b.WriteString(indent + indentStep)
			if err := writeValue(b, e, indent+indentStep); err != nil {
				return err
			}
			if i < len(t)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		b.WriteString(indent + "]")
		return nil
	}
	raw, err := encodeValue(v)
	if err != nil {
		return err
	}
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		// Structs and typed slices render like their decoded JSON.
		var generic any
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return err
		}
		return writeValue(b, generic, indent)
	}
	b.Write(raw)
	return nil
}

func encodeValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func cloneArguments(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneArguments(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
