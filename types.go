package toolpick

import (
	"strconv"
	"strings"
)

// Kind classifies a node of the compiled type graph.
type Kind int

// Type kinds. Class and Enum are named and live in a TypeRegistry; the rest are
// anonymous and built with the constructors below.
const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	KindNull
	KindLiteral
	KindClass
	KindEnum
	KindUnion
	KindList
	KindMap
	KindOptional
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindInt:      "int",
	KindFloat:    "float",
	KindBool:     "bool",
	KindNull:     "null",
	KindLiteral:  "literal",
	KindClass:    "class",
	KindEnum:     "enum",
	KindUnion:    "union",
	KindList:     "list",
	KindMap:      "map",
	KindOptional: "optional",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsPrimitive reports whether k is one of string, int, float, bool or null.
func (k Kind) IsPrimitive() bool {
	return k >= KindString && k <= KindNull
}

// Type is one node of the type contract handed to the structured-generation engine.
//
// Which fields are meaningful depends on Kind:
//
//	Class    Name, Fields
//	Enum     Name, Values
//	Literal  Value
//	Union    Variants (order preserved)
//	List     Elem
//	Optional Elem
//	Map      Key, Elem
type Type struct {
	Kind     Kind
	Name     string
	Value    string
	Fields   []*Field
	Values   []string
	Variants []*Type
	Elem     *Type
	Key      *Type

	action string // set on action classes: the discriminant value
	owner  string // set on arguments classes: the owning action
}

// Field is one property of a class.
type Field struct {
	Name        string
	Type        *Type
	Required    bool
	Description string
	Default     any
}

// Primitive returns an anonymous primitive type of kind k.
func Primitive(k Kind) *Type {
	if !k.IsPrimitive() {
		panic("toolpick: Primitive called with non-primitive kind " + k.String())
	}
	return &Type{Kind: k}
}

// Literal returns a string literal type (used for action discriminants and unnamed enums).
func Literal(value string) *Type {
	return &Type{Kind: KindLiteral, Value: value}
}

// Union returns a union of the given variants in order.
func Union(variants ...*Type) *Type {
	return &Type{Kind: KindUnion, Variants: variants}
}

// ListOf returns a list of elem.
func ListOf(elem *Type) *Type {
	return &Type{Kind: KindList, Elem: elem}
}

// MapOf returns a map from key to value.
func MapOf(key, value *Type) *Type {
	return &Type{Kind: KindMap, Key: key, Elem: value}
}

// Optional wraps inner as nullable. Wrapping an optional type returns it unchanged.
func Optional(inner *Type) *Type {
	if inner.Kind == KindOptional {
		return inner
	}
	return &Type{Kind: KindOptional, Elem: inner}
}

// Field returns the class field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Action reports whether t is an action class and returns its discriminant and
// argument class.
func (t *Type) Action() (name string, args *Type, ok bool) {
	if t == nil || t.Kind != KindClass || t.action == "" {
		return "", nil, false
	}
	f := t.Field(fieldArguments)
	if f == nil {
		return "", nil, false
	}
	return t.action, f.Type, true
}

// String renders t as a compact type expression, e.g. `tool_search | "x" | string[]?`.
// Classes and enums render as their name, so cyclic graphs print finitely.
func (t *Type) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *Type) write(b *strings.Builder) {
	if t == nil {
		b.WriteString("<nil>")
		return
	}
	switch t.Kind {
	case KindClass, KindEnum:
		b.WriteString(t.Name)
	case KindLiteral:
		b.WriteString(strconv.Quote(t.Value))
	case KindUnion:
		for i, v := range t.Variants {
			if i > 0 {
				b.WriteString(" | ")
			}
			v.write(b)
		}
	case KindList:
		t.writeNested(b, t.Elem)
		b.WriteString("[]")
	case KindOptional:
		t.writeNested(b, t.Elem)
		b.WriteString("?")
	case KindMap:
		b.WriteString("map<")
		t.Key.write(b)
		b.WriteString(", ")
		t.Elem.write(b)
		b.WriteString(">")
	default:
		b.WriteString(t.Kind.String())
	}
}

func (t *Type) writeNested(b *strings.Builder, inner *Type) {
	if inner != nil && inner.Kind == KindUnion && len(inner.Variants) > 1 {
		b.WriteString("(")
		inner.write(b)
		b.WriteString(")")
		return
	}
	inner.write(b)
}
