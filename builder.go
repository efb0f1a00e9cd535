package toolpick

import (
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// Builder is the registration surface of a structured-generation engine. H is
// the engine's handle for a type. Emit drives a Builder from a Contract.
type Builder[H any] interface {
	Primitive(kind Kind) H
	Literal(value string) H
	AddClass(name string) H
	AddProperty(class H, name string, typ H, description string)
	AddEnum(name string, values []string) H
	Union(variants []H) H
	List(elem H) H
	Map(key, value H) H
	Optional(inner H) H
	SetOutput(slot string, typ H)
}

// Emit registers every type of c with b and sets the contract's output slot.
// Classes and enums are declared first, in registration order, so properties
// may reference any of them (including the class being filled).
func Emit[H any](c *Contract, b Builder[H]) (H, error) {
	e := &emitter[H]{b: b, named: make(map[*Type]H)}
	types := c.registry.Types()
	for _, t := range types {
		switch t.Kind {
		case KindClass:
			e.named[t] = b.AddClass(t.Name)
		case KindEnum:
			e.named[t] = b.AddEnum(t.Name, t.Values)
		}
	}
	for _, t := range types {
		if t.Kind != KindClass {
			continue
		}
		for _, f := range t.Fields {
			h, err := e.handle(f.Type)
			if err != nil {
				var zero H
				return zero, fmt.Errorf("class %s field %s: %w", t.Name, f.Name, err)
			}
			b.AddProperty(e.named[t], f.Name, h, f.Description)
		}
	}
	out, err := e.handle(c.output)
	if err != nil {
		var zero H
		return zero, fmt.Errorf("output slot %s: %w", c.slot, err)
	}
	b.SetOutput(c.slot, out)
	return out, nil
}

type emitter[H any] struct {
	b     Builder[H]
	named map[*Type]H
}

func (e *emitter[H]) handle(t *Type) (H, error) {
	var zero H
	if t == nil {
		return zero, fmt.Errorf("nil type")
	}
	switch t.Kind {
	case KindString, KindInt, KindFloat, KindBool, KindNull:
		return e.b.Primitive(t.Kind), nil
	case KindLiteral:
		return e.b.Literal(t.Value), nil
	case KindClass, KindEnum:
		h, ok := e.named[t]
		if !ok {
			return zero, fmt.Errorf("%s %s is not registered", t.Kind, t.Name)
		}
		return h, nil
	case KindUnion:
		hs := make([]H, 0, len(t.Variants))
		for _, v := range t.Variants {
			h, err := e.handle(v)
			if err != nil {
				return zero, err
			}
			hs = append(hs, h)
		}
		return e.b.Union(hs), nil
	case KindList:
		h, err := e.handle(t.Elem)
		if err != nil {
			return zero, err
		}
		return e.b.List(h), nil
	case KindOptional:
		h, err := e.handle(t.Elem)
		if err != nil {
			return zero, err
		}
		return e.b.Optional(h), nil
	case KindMap:
		k, err := e.handle(t.Key)
		if err != nil {
			return zero, err
		}
		v, err := e.handle(t.Elem)
		if err != nil {
			return zero, err
		}
		return e.b.Map(k, v), nil
	default:
		return zero, fmt.Errorf("unknown kind %s", t.Kind)
	}
}

const defsPrefix = "#/$defs/"

// JSONSchemaBuilder emits a contract as a strict JSON Schema: every object
// closed with additionalProperties false, every property required, nullable
// properties as anyOf [T, null]. Named types live under $defs.
type JSONSchemaBuilder struct {
	defs jsonschema.Definitions
	root *jsonschema.Schema
}

// NewJSONSchemaBuilder creates an empty JSONSchemaBuilder.
func NewJSONSchemaBuilder() *JSONSchemaBuilder {
	return &JSONSchemaBuilder{defs: make(jsonschema.Definitions)}
}

var jsonTypes = map[Kind]string{
	KindString: "string",
	KindInt:    "integer",
	KindFloat:  "number",
	KindBool:   "boolean",
	KindNull:   "null",
}

func (b *JSONSchemaBuilder) Primitive(kind Kind) *jsonschema.Schema {
	return &jsonschema.Schema{Type: jsonTypes[kind]}
}

func (b *JSONSchemaBuilder) Literal(value string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Const: value}
}

// defKey returns the $defs key for a named type. Classes and enums may share a
// name, so a taken key gets a numeric suffix.
func (b *JSONSchemaBuilder) defKey(name string) string {
	key := name
	for i := 2; ; i++ {
		if _, taken := b.defs[key]; !taken {
			return key
		}
		key = fmt.Sprintf("%s_%d", name, i)
	}
}

func (b *JSONSchemaBuilder) AddClass(name string) *jsonschema.Schema {
	key := b.defKey(name)
	b.defs[key] = &jsonschema.Schema{
		Type:                 "object",
		Title:                name,
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}
	return &jsonschema.Schema{Ref: defsPrefix + key}
}

func (b *JSONSchemaBuilder) AddProperty(class *jsonschema.Schema, name string, typ *jsonschema.Schema, description string) {
	def, ok := b.defs[strings.TrimPrefix(class.Ref, defsPrefix)]
	if !ok {
		return
	}
	prop := typ
	if description != "" {
		cp := *typ
		cp.Description = description
		prop = &cp
	}
	def.Properties.Set(name, prop)
	def.Required = append(def.Required, name)
}

func (b *JSONSchemaBuilder) AddEnum(name string, values []string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	key := b.defKey(name)
	b.defs[key] = &jsonschema.Schema{Type: "string", Title: name, Enum: enum}
	return &jsonschema.Schema{Ref: defsPrefix + key}
}

func (b *JSONSchemaBuilder) Union(variants []*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{AnyOf: variants}
}

func (b *JSONSchemaBuilder) List(elem *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: elem}
}

func (b *JSONSchemaBuilder) Map(_, value *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: value}
}

func (b *JSONSchemaBuilder) Optional(inner *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{inner, {Type: "null"}}}
}

func (b *JSONSchemaBuilder) SetOutput(slot string, typ *jsonschema.Schema) {
	props := jsonschema.NewProperties()
	props.Set(slot, typ)
	b.root = &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             []string{slot},
		AdditionalProperties: jsonschema.FalseSchema,
		Definitions:          b.defs,
	}
}

// Schema returns the emitted document, or nil before SetOutput.
func (b *JSONSchemaBuilder) Schema() *jsonschema.Schema { return b.root }

// JSONSchema emits c as a strict JSON Schema document.
func (c *Contract) JSONSchema() (*jsonschema.Schema, error) {
	b := NewJSONSchemaBuilder()
	if _, err := Emit[*jsonschema.Schema](c, b); err != nil {
		return nil, err
	}
	return b.Schema(), nil
}
