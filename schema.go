package toolpick

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// Warning reports a schema construct that was compiled leniently instead of
// rejected (missing type, untyped nested object).
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string {
	if w.Path == "" {
		return w.Message
	}
	return w.Path + ": " + w.Message
}

type parseFunc func(node *jsonschema.Schema, path string) (*Type, error)

// Compiler turns schema nodes of one Document into types registered in a shared
// TypeRegistry. References are compiled once per Compiler and cached by their
// literal ref string.
//
// A Compiler is not safe for concurrent use.
type Compiler struct {
	reg       *TypeRegistry
	doc       *Document
	logger    *slog.Logger
	parsers   map[string]parseFunc
	refs      map[string]*Type
	refOrder  []string
	resolving map[string]bool
	warnings  []Warning
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithCompilerLogger sets the logger that receives schema warnings.
func WithCompilerLogger(logger *slog.Logger) CompilerOption {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCompiler creates a Compiler for doc that registers named types in reg.
func NewCompiler(reg *TypeRegistry, doc *Document, opts ...CompilerOption) *Compiler {
	c := &Compiler{
		reg:       reg,
		doc:       doc,
		logger:    slog.Default(),
		refs:      make(map[string]*Type),
		resolving: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parsers = map[string]parseFunc{
		"string":     c.compileString,
		"number":     primitive(KindFloat),
		"integer":    primitive(KindInt),
		"object":     c.compileObject,
		"array":      c.compileArray,
		"boolean":    primitive(KindBool),
		"null":       primitive(KindNull),
		TypeFunction: c.compileFunction,
	}
	return c
}

func primitive(k Kind) parseFunc {
	return func(*jsonschema.Schema, string) (*Type, error) {
		return Primitive(k), nil
	}
}

// CompileDocument compiles the root of doc.
func (c *Compiler) CompileDocument() (*Type, error) {
	return c.Compile(c.doc.Root())
}

// Compile compiles node and everything it references.
func (c *Compiler) Compile(node *jsonschema.Schema) (*Type, error) {
	return c.compile(node, "")
}

// Warnings returns the warnings collected so far.
func (c *Compiler) Warnings() []Warning {
	return slices.Clone(c.warnings)
}

func (c *Compiler) warn(path, format string, args ...any) {
	w := Warning{Path: path, Message: fmt.Sprintf(format, args...)}
	c.warnings = append(c.warnings, w)
	c.logger.Warn("schema warning", "path", w.Path, "warning", w.Message)
}

func (c *Compiler) compile(node *jsonschema.Schema, path string) (*Type, error) {
	if node == nil {
		return nil, &SchemaError{Path: path, Reason: "missing schema"}
	}
	switch {
	case len(node.AnyOf) > 0:
		return c.compileUnion(node.AnyOf, path)
	case node.Ref != "":
		return c.compileRef(node.Ref, path)
	case node.AdditionalProperties != nil && len(node.AdditionalProperties.AnyOf) > 0:
		values, err := c.compileUnion(node.AdditionalProperties.AnyOf, path+"{}")
		if err != nil {
			return nil, err
		}
		return MapOf(Primitive(KindString), values), nil
	case node.Type == "":
		c.warn(path, "schema has no type, compiling as string")
		return Primitive(KindString), nil
	}
	parse, ok := c.parsers[node.Type]
	if !ok {
		return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("unsupported type %q", node.Type)}
	}
	return parse(node, path)
}

func (c *Compiler) compileUnion(variants []*jsonschema.Schema, path string) (*Type, error) {
	out := make([]*Type, 0, len(variants))
	for i, v := range variants {
		t, err := c.compile(v, fmt.Sprintf("%s|%d", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return Union(out...), nil
}

func (c *Compiler) compileRef(ref, path string) (*Type, error) {
	if t, ok := c.refs[ref]; ok {
		return t, nil
	}
	node, err := c.doc.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if c.resolving[ref] {
		// Only a cycle through a named class can terminate: its placeholder is
		// already registered.
		if node.Type == "object" && node.Title != "" {
			if t, ok := c.reg.Lookup(KindClass, node.Title); ok {
				return t, nil
			}
		}
		return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("cyclic reference %s does not pass through a titled object", ref)}
	}
	c.resolving[ref] = true
	defer delete(c.resolving, ref)

	t, err := c.compile(node, ref)
	if err != nil {
		return nil, err
	}
	c.refs[ref] = t
	c.refOrder = append(c.refOrder, ref)
	return t, nil
}

func (c *Compiler) compileString(node *jsonschema.Schema, path string) (*Type, error) {
	if s, ok := node.Const.(string); ok {
		return Literal(s), nil
	}
	if len(node.Enum) == 0 {
		return Primitive(KindString), nil
	}
	values := make([]string, 0, len(node.Enum))
	for _, v := range node.Enum {
		values = append(values, enumValue(v))
	}
	if node.Title == "" {
		lits := make([]*Type, len(values))
		for i, v := range values {
			lits[i] = Literal(v)
		}
		return Union(lits...), nil
	}
	enum, created := c.reg.GetOrCreate(KindEnum, node.Title)
	if created {
		enum.Values = values
	}
	return enum, nil
}

func enumValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (c *Compiler) compileArray(node *jsonschema.Schema, path string) (*Type, error) {
	if node.Items == nil {
		return nil, &SchemaError{Path: path, Reason: "array schema requires items"}
	}
	elem, err := c.compile(node.Items, path+"[]")
	if err != nil {
		return nil, err
	}
	return ListOf(elem), nil
}

func (c *Compiler) compileObject(node *jsonschema.Schema, path string) (*Type, error) {
	if node.Title == "" {
		return nil, &SchemaError{Path: path, Reason: "object schema requires a title"}
	}
	mark := c.checkpoint()
	cls, created := c.reg.GetOrCreate(KindClass, node.Title)
	if !created {
		if cls.action != "" || cls.owner != "" {
			return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("object title %q is taken by action %q", node.Title, cls.action+cls.owner)}
		}
		return cls, nil
	}
	base := path
	if base == "" || strings.HasPrefix(base, "#/") {
		base = node.Title
	}
	fields, err := c.compileFields(node, base)
	if err != nil {
		c.rollback(mark)
		return nil, err
	}
	cls.Fields = fields
	return cls, nil
}

type checkpoint struct{ types, refs int }

func (c *Compiler) checkpoint() checkpoint {
	return checkpoint{types: c.reg.Len(), refs: len(c.refOrder)}
}

// rollback unregisters the classes and enums created since cp, along with the
// references that were compiled into them.
func (c *Compiler) rollback(cp checkpoint) {
	c.reg.truncate(cp.types)
	for _, ref := range c.refOrder[cp.refs:] {
		delete(c.refs, ref)
	}
	c.refOrder = c.refOrder[:cp.refs]
}

func (c *Compiler) compileFields(node *jsonschema.Schema, path string) ([]*Field, error) {
	fields := make([]*Field, 0, node.Properties.Len())
	for pair := node.Properties.Oldest(); pair != nil; pair = pair.Next() {
		f, err := c.compileField(pair.Key, pair.Value, slices.Contains(node.Required, pair.Key), path+"."+pair.Key)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func (c *Compiler) compileField(name string, prop *jsonschema.Schema, required bool, path string) (*Field, error) {
	if prop == nil {
		return nil, &SchemaError{Path: path, Reason: "missing property schema"}
	}
	var typ *Type
	if untypedObject(prop) {
		c.warn(path, "object property without properties, compiling as map<string, string>")
		typ = MapOf(Primitive(KindString), Primitive(KindString))
	} else {
		var err error
		if typ, err = c.compile(prop, path); err != nil {
			return nil, err
		}
	}
	hasDefault := prop.Default != nil
	if !required && !hasDefault {
		typ = Optional(typ)
	}
	return &Field{
		Name:        name,
		Type:        typ,
		Required:    required,
		Description: describe(prop.Description, prop.Default),
		Default:     prop.Default,
	}, nil
}

func untypedObject(s *jsonschema.Schema) bool {
	if s.Type != "object" || s.Properties.Len() > 0 {
		return false
	}
	return s.AdditionalProperties == nil || len(s.AdditionalProperties.AnyOf) == 0
}

// describe appends the default value to a description, if both are present.
func describe(description string, def any) string {
	if description == "" || def == nil {
		return strings.TrimSpace(description)
	}
	return strings.TrimSpace(description + "\nDefault: " + formatDefault(def))
}

func formatDefault(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// compileFunction builds the action class tool_<name>{name: "<name>", arguments: tool_<name>_arguments}.
func (c *Compiler) compileFunction(node *jsonschema.Schema, path string) (*Type, error) {
	spec, ok := functionOf(node)
	if !ok {
		return nil, &SchemaError{Path: path, Reason: `function schema has no "function" payload`}
	}
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return nil, &SchemaError{Path: path, Reason: "function has no name"}
	}
	mark := c.checkpoint()
	action, created := c.reg.GetOrCreate(KindClass, actionClassName(name))
	if !created {
		if action.action != name {
			return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("class %s of action %q is already taken", action.Name, name)}
		}
		return action, nil
	}
	action.action = name

	args, created := c.reg.GetOrCreate(KindClass, argumentsClassName(name))
	if !created {
		c.rollback(mark)
		return nil, &SchemaError{Path: path, Reason: fmt.Sprintf("class %s of action %q is already taken", args.Name, name)}
	}
	args.owner = name

	params := spec.Parameters
	if params != nil && params.Ref != "" {
		var err error
		if params, err = c.doc.Resolve(params.Ref); err != nil {
			c.rollback(mark)
			return nil, err
		}
	}
	if params != nil {
		fields, err := c.compileFields(params, name+"."+fieldArguments)
		if err != nil {
			c.rollback(mark)
			return nil, err
		}
		args.Fields = fields
	}
	action.Fields = []*Field{
		{Name: fieldName, Type: Literal(name), Required: true, Description: strings.TrimSpace(spec.Description)},
		{Name: fieldArguments, Type: args, Required: true},
	}
	return action, nil
}

func actionClassName(name string) string {
	return "tool_" + name
}

func argumentsClassName(name string) string {
	return actionClassName(name) + "_arguments"
}
