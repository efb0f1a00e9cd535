package toolpick

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Contract is the assembled output contract of one turn: a named slot holding
// the union of every offered action (or a list of it), plus everything needed
// to reconcile and finalize the model's output against it.
//
// A Contract is immutable after Assemble and safe for concurrent use.
type Contract struct {
	slot       string
	output     *Type
	actions    []*Type
	names      []string
	reply      bool
	multiple   bool
	registry   *TypeRegistry
	warnings   []Warning
	params     *orderedmap.OrderedMap[string, *jsonschema.Schema]
	validators map[string]schemaValidator
}

// Assemble compiles every action descriptor into one shared TypeRegistry and
// registers the union of the resulting action types under slot.
//
// Actions with the same name collapse into one variant. Schema warnings are
// collected on the contract and logged; schema errors abort assembly.
func Assemble(actions []Descriptor, slot string, opts ...AssembleOption) (*Contract, error) {
	o := assembleOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(slot) == "" {
		return nil, &ConfigError{Reason: "slot name must be provided and non-empty"}
	}

	specs, err := describeAll(actions)
	if err != nil {
		return nil, err
	}
	if o.toolChoice != "" {
		if specs, err = chooseTool(specs, o.toolChoice); err != nil {
			return nil, err
		}
	}
	if len(specs) == 0 && !o.reply {
		return nil, &ConfigError{Reason: "at least one action must be provided"}
	}

	c := &Contract{
		slot:       slot,
		reply:      o.reply,
		multiple:   o.multiple,
		registry:   NewTypeRegistry(),
		params:     orderedmap.New[string, *jsonschema.Schema](),
		validators: make(map[string]schemaValidator),
	}
	for _, spec := range specs {
		if spec.Name == ReplyActionName {
			return nil, &ConfigError{Reason: fmt.Sprintf("action name %q is reserved for the reply action", ReplyActionName)}
		}
		if _, dup := c.params.Get(spec.Name); dup {
			logger.Debug("duplicate action skipped", "action", spec.Name)
			continue
		}
		t, err := c.compileAction(spec, logger)
		if err != nil {
			return nil, err
		}
		c.actions = append(c.actions, t)
		c.names = append(c.names, spec.Name)
		c.params.Set(spec.Name, spec.Parameters)
		if o.validate {
			v, err := compileValidator(spec.Name, spec.Parameters)
			if err != nil {
				return nil, &SchemaError{Path: spec.Name, Reason: "invalid parameter schema: " + err.Error(), Err: err}
			}
			c.validators[spec.Name] = v
		}
	}

	variants := slices.Clone(c.actions)
	if o.reply {
		t, err := c.compileAction(replySpec(), logger)
		if err != nil {
			return nil, err
		}
		variants = append(variants, t)
	}
	c.output = Union(variants...)
	if o.multiple {
		c.output = ListOf(c.output)
	}

	logger.Debug("contract assembled",
		"slot", slot,
		"actions", len(c.names),
		"reply", o.reply,
		"multiple", o.multiple,
		"types", c.registry.Len(),
		"warnings", len(c.warnings))
	return c, nil
}

func describeAll(actions []Descriptor) ([]FunctionSpec, error) {
	specs := make([]FunctionSpec, 0, len(actions))
	for i, d := range actions {
		if d == nil {
			return nil, &ConfigError{Reason: fmt.Sprintf("action %d is nil", i)}
		}
		spec, err := d.Describe()
		if err != nil {
			return nil, err
		}
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, &SchemaError{Path: fmt.Sprintf("actions[%d]", i), Reason: "function has no name"}
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func chooseTool(specs []FunctionSpec, name string) ([]FunctionSpec, error) {
	for _, s := range specs {
		if s.Name == name {
			return []FunctionSpec{s}, nil
		}
	}
	return nil, &ConfigError{Reason: fmt.Sprintf("tool choice %q does not match any action", name)}
}

func (c *Contract) compileAction(spec FunctionSpec, logger *slog.Logger) (*Type, error) {
	doc, err := NewFunctionDocument(spec)
	if err != nil {
		return nil, err
	}
	comp := NewCompiler(c.registry, doc, WithCompilerLogger(logger))
	t, err := comp.CompileDocument()
	c.warnings = append(c.warnings, comp.Warnings()...)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Slot returns the name of the output slot.
func (c *Contract) Slot() string { return c.slot }

// Output returns the slot's type: a union of action types, or a list of it.
func (c *Contract) Output() *Type { return c.output }

// Actions returns the compiled action types, excluding the reply action.
func (c *Contract) Actions() []*Type { return slices.Clone(c.actions) }

// ActionNames returns the names of the offered actions, excluding the reply action.
func (c *Contract) ActionNames() []string { return slices.Clone(c.names) }

// HasReply reports whether the reply action is offered.
func (c *Contract) HasReply() bool { return c.reply }

// Multiple reports whether the slot holds a list of actions.
func (c *Contract) Multiple() bool { return c.multiple }

// Registry returns the registry holding every named type of the contract.
// Callers must not modify it.
func (c *Contract) Registry() *TypeRegistry { return c.registry }

// Warnings returns the schema warnings collected during assembly.
func (c *Contract) Warnings() []Warning { return slices.Clone(c.warnings) }

// Parameters returns the parameter schema an action was described with.
func (c *Contract) Parameters(name string) (*jsonschema.Schema, bool) {
	return c.params.Get(name)
}

// EachParameters calls fn with every action's parameter schema in the order
// the actions were offered, stopping early when fn returns false.
func (c *Contract) EachParameters(fn func(name string, params *jsonschema.Schema) bool) {
	for pair := c.params.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}
