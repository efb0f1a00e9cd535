package toolpick

import (
	"bytes"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// LoadCatalog parses a list of action descriptions from YAML or JSON. Each
// entry is either a function wrapper ({type: function, function: {...}}) or a
// bare {name, description, parameters} mapping. Property order is preserved.
func LoadCatalog(data []byte) ([]FunctionSpec, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SchemaError{Reason: "invalid catalog: " + err.Error(), Err: err}
	}
	node := &root
	if node.Kind == 0 {
		return nil, nil
	}
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.SequenceNode {
		return nil, &SchemaError{Reason: fmt.Sprintf("catalog must be a list, got %s at line %d", kindName(node.Kind), node.Line)}
	}
	specs := make([]FunctionSpec, 0, len(node.Content))
	for i, item := range node.Content {
		var buf bytes.Buffer
		if err := writeJSON(&buf, item); err != nil {
			return nil, &SchemaError{Path: fmt.Sprintf("catalog[%d]", i), Reason: err.Error(), Err: err}
		}
		spec, err := ParseFunction(buf.Bytes())
		if err != nil {
			var se *SchemaError
			if errors.As(err, &se) && se.Path == "" {
				se.Path = fmt.Sprintf("catalog[%d]", i)
			}
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Descriptors converts specs to a Descriptor slice for Assemble.
func Descriptors(specs []FunctionSpec) []Descriptor {
	out := make([]Descriptor, len(specs))
	for i, s := range specs {
		out[i] = s
	}
	return out
}

// writeJSON encodes a YAML node as JSON, keeping mapping key order.
func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return writeJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(b)
		return nil
	default:
		return fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.SequenceNode:
		return "sequence"
	default:
		return "node"
	}
}
