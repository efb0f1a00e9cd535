package toolpick

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// Descriptor is anything that can describe itself as a callable action.
// FunctionSpec, FromTool and *Extractor[T] implement it.
type Descriptor interface {
	Describe() (FunctionSpec, error)
}

// DescriptorFunc adapts a function to Descriptor.
type DescriptorFunc func() (FunctionSpec, error)

func (f DescriptorFunc) Describe() (FunctionSpec, error) { return f() }

// FromTool returns a Descriptor for a Tool. The tool's Parameters map is
// converted to a schema node; since Go maps are unordered, properties come out
// sorted by name.
func FromTool(t Tool) Descriptor {
	return DescriptorFunc(func() (FunctionSpec, error) {
		name := strings.TrimSpace(t.Name())
		if name == "" {
			return FunctionSpec{}, &SchemaError{Reason: "tool has no name"}
		}
		params, err := schemaFromMap(t.Parameters())
		if err != nil {
			return FunctionSpec{}, &SchemaError{Path: name, Reason: "invalid tool parameters: " + err.Error(), Err: err}
		}
		return FunctionSpec{Name: name, Description: t.Description(), Parameters: params}, nil
	})
}

func schemaFromMap(m map[string]any) (*jsonschema.Schema, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func replySpec() FunctionSpec {
	props := jsonschema.NewProperties()
	props.Set(fieldContent, &jsonschema.Schema{
		Type:        "string",
		Description: "The message shown to the user.",
	})
	return FunctionSpec{
		Name:        ReplyActionName,
		Description: "Use this tool when you want to send a natural language response shown to the user. Write naturally, kindly, concisely when possible.",
		Parameters: &jsonschema.Schema{
			Type:       "object",
			Properties: props,
			Required:   []string{fieldContent},
		},
	}
}
