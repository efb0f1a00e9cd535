package toolpick

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// TypeFunction is the schema type of a function wrapper node:
// {"type": "function", "function": {"name", "description", "parameters"}}.
const TypeFunction = "function"

const extraFunction = "function"

// FunctionSpec describes one callable action: its discriminant name, a
// description shown to the model, and the JSON Schema of its arguments.
type FunctionSpec struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// Describe returns s itself, so a FunctionSpec can be passed wherever a Descriptor is expected.
func (s FunctionSpec) Describe() (FunctionSpec, error) { return s, nil }

// Node wraps s as a function-typed schema node.
func (s FunctionSpec) Node() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:   TypeFunction,
		Extras: map[string]any{extraFunction: s},
	}
}

// functionOf extracts the function payload from a function-typed node.
func functionOf(node *jsonschema.Schema) (FunctionSpec, bool) {
	switch v := node.Extras[extraFunction].(type) {
	case FunctionSpec:
		return v, true
	case *FunctionSpec:
		if v != nil {
			return *v, true
		}
	}
	return FunctionSpec{}, false
}

// Document is one schema document being compiled: the parsed root node plus the
// raw sections used to resolve local "#/<section>/<name>" references.
type Document struct {
	root  *jsonschema.Schema
	bases []map[string]json.RawMessage
	// decoded sections, keyed by base index and section name
	sections map[sectionKey]map[string]json.RawMessage
}

type sectionKey struct {
	base    int
	section string
}

// ParseDocument parses a JSON schema document. Function wrappers are recognised
// and their payload made available to the compiler; references inside
// function.parameters resolve against the parameters object as well.
func ParseDocument(data []byte) (*Document, error) {
	var root jsonschema.Schema
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &SchemaError{Reason: "invalid schema document: " + err.Error(), Err: err}
	}
	doc := &Document{root: &root, sections: make(map[sectionKey]map[string]json.RawMessage)}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		// boolean schemas have no sections to resolve against
		return doc, nil
	}
	doc.bases = append(doc.bases, top)

	if root.Type != TypeFunction {
		return doc, nil
	}
	var wrapper struct {
		Function *FunctionSpec `json:"function"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, &SchemaError{Reason: "invalid function wrapper: " + err.Error(), Err: err}
	}
	if wrapper.Function == nil {
		return nil, &SchemaError{Reason: `function wrapper has no "function" member`}
	}
	root.Extras = map[string]any{extraFunction: *wrapper.Function}

	var fn map[string]json.RawMessage
	if err := json.Unmarshal(top[extraFunction], &fn); err == nil {
		var params map[string]json.RawMessage
		if raw, ok := fn["parameters"]; ok && json.Unmarshal(raw, &params) == nil {
			doc.bases = append(doc.bases, params)
		}
	}
	return doc, nil
}

// NewDocument builds a Document from an in-memory schema node.
func NewDocument(root *jsonschema.Schema) (*Document, error) {
	data, err := json.Marshal(root)
	if err != nil {
		return nil, &SchemaError{Reason: "cannot encode schema: " + err.Error(), Err: err}
	}
	return ParseDocument(data)
}

// NewFunctionDocument builds the function-wrapper Document for spec.
func NewFunctionDocument(spec FunctionSpec) (*Document, error) {
	return NewDocument(spec.Node())
}

// Root returns the document's root node.
func (d *Document) Root() *jsonschema.Schema { return d.root }

// Resolve returns the node a local reference points to. Only references of the
// form "#/<section>/<name>" are supported; the name may contain further slashes
// and JSON-pointer escapes.
func (d *Document) Resolve(ref string) (*jsonschema.Schema, error) {
	if d == nil {
		return nil, &SchemaError{Path: ref, Reason: "no document to resolve references against"}
	}
	rest, ok := strings.CutPrefix(ref, "#/")
	if !ok {
		return nil, &SchemaError{Path: ref, Reason: "only local references of the form #/<section>/<name> are supported"}
	}
	section, name, ok := strings.Cut(rest, "/")
	if !ok || section == "" || name == "" {
		return nil, &SchemaError{Path: ref, Reason: "reference must have the form #/<section>/<name>"}
	}
	section, name = unescapePointer(section), unescapePointer(name)

	for i := range d.bases {
		entries, err := d.section(i, section)
		if err != nil {
			return nil, &SchemaError{Path: ref, Reason: "invalid section " + section, Err: err}
		}
		raw, ok := entries[name]
		if !ok {
			continue
		}
		var node jsonschema.Schema
		if err := json.Unmarshal(raw, &node); err != nil {
			return nil, &SchemaError{Path: ref, Reason: "invalid referenced schema: " + err.Error(), Err: err}
		}
		if err := d.attachFunction(&node, raw); err != nil {
			return nil, err
		}
		return &node, nil
	}
	return nil, &SchemaError{Path: ref, Reason: "reference target not found"}
}

func (d *Document) section(base int, name string) (map[string]json.RawMessage, error) {
	key := sectionKey{base: base, section: name}
	if s, ok := d.sections[key]; ok {
		return s, nil
	}
	raw, ok := d.bases[base][name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		d.sections[key] = nil
		return nil, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	d.sections[key] = entries
	return entries, nil
}

// attachFunction fills the function payload of a referenced function wrapper.
func (d *Document) attachFunction(node *jsonschema.Schema, raw json.RawMessage) error {
	if node.Type != TypeFunction {
		return nil
	}
	var wrapper struct {
		Function *FunctionSpec `json:"function"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Function == nil {
		return &SchemaError{Reason: `referenced function wrapper has no "function" member`, Err: err}
	}
	node.Extras = map[string]any{extraFunction: *wrapper.Function}
	return nil
}

var pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")

func unescapePointer(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	return pointerUnescaper.Replace(s)
}

// ParseFunction parses a single action description. Both the wrapped form
// {"type":"function","function":{...}} and a bare {"name","description","parameters"}
// object are accepted.
func ParseFunction(data []byte) (FunctionSpec, error) {
	var probe struct {
		Type     string        `json:"type"`
		Function *FunctionSpec `json:"function"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return FunctionSpec{}, &SchemaError{Reason: "invalid function description: " + err.Error(), Err: err}
	}
	var spec FunctionSpec
	switch {
	case probe.Function != nil:
		spec = *probe.Function
	default:
		if err := json.Unmarshal(data, &spec); err != nil {
			return FunctionSpec{}, &SchemaError{Reason: "invalid function description: " + err.Error(), Err: err}
		}
	}
	if strings.TrimSpace(spec.Name) == "" {
		return FunctionSpec{}, &SchemaError{Reason: "function description has no name"}
	}
	return spec, nil
}
