package toolpick

import (
	"fmt"
	"reflect"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
)

// Extractor describes a Go argument struct T as an action and turns finalized
// actions back into validated T values: schema validation first, then
// Validatable.Validate() if T implements it.
type Extractor[T any] struct {
	spec      FunctionSpec
	validator schemaValidator
}

// NewExtractor reflects T into the parameter schema of an action named name.
// T must be a struct (or pointer to one). Field names follow the json tags;
// descriptions and defaults follow the jsonschema tags.
func NewExtractor[T any](name, description string) (*Extractor[T], error) {
	if name == "" {
		return nil, &SchemaError{Reason: "extractor name must be non-empty"}
	}
	params, err := reflectParameters[T]()
	if err != nil {
		return nil, &SchemaError{Path: name, Reason: err.Error()}
	}
	v, err := compileValidator(name, params)
	if err != nil {
		return nil, &SchemaError{Path: name, Reason: "invalid parameter schema: " + err.Error(), Err: err}
	}
	return &Extractor[T]{
		spec:      FunctionSpec{Name: name, Description: description, Parameters: params},
		validator: v,
	}, nil
}

func reflectParameters[T any]() (*jsonschema.Schema, error) {
	typ := reflect.TypeFor[T]()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("argument type %s is not a struct", typ)
	}
	r := &jsonschema.Reflector{ExpandedStruct: true, Anonymous: true}
	s := r.ReflectFromType(typ)
	s.Version = ""
	// Nested structs become $defs entries; the compiler needs them titled.
	for name, def := range s.Definitions {
		if def != nil && def.Type == "object" && def.Title == "" {
			def.Title = name
		}
	}
	return s, nil
}

// Name returns the action name.
func (e *Extractor[T]) Name() string { return e.spec.Name }

// Describe returns the action description derived from T.
func (e *Extractor[T]) Describe() (FunctionSpec, error) { return e.spec, nil }

// Parse validates a finalized action against T's schema and decodes its arguments.
func (e *Extractor[T]) Parse(a Action) (T, error) {
	var zero T
	if a.Name() != e.spec.Name {
		return zero, &ActionValidationError{Action: a.Name(), Known: []string{e.spec.Name}, Reason: "action does not match extractor"}
	}
	data, err := json.Marshal(a.arguments)
	if err != nil {
		return zero, &ActionValidationError{Action: a.Name(), Reason: "cannot encode arguments", Err: err}
	}
	return e.ParseArguments(data)
}

// ParseArguments deserializes argsJSON into T after schema validation, then runs
// Validatable. Failures are ActionValidationErrors, suitable for sending back to
// the model for self-correction.
func (e *Extractor[T]) ParseArguments(argsJSON []byte) (T, error) {
	var zero T
	var v any
	if err := json.Unmarshal(argsJSON, &v); err != nil {
		return zero, &ActionValidationError{Action: e.spec.Name, Reason: "json parse error: " + err.Error(), Err: err}
	}
	if err := validateAgainstSchema(e.validator, pruneNulls(v)); err != nil {
		return zero, &ActionValidationError{Action: e.spec.Name, Reason: "arguments do not match the parameter schema", Err: err}
	}
	var args T
	if err := json.Unmarshal(argsJSON, &args); err != nil {
		return zero, &ActionValidationError{Action: e.spec.Name, Reason: "json parse error: " + err.Error(), Err: err}
	}
	if err := runLayer2Validation(args); err != nil {
		if IsActionValidationError(err) {
			return zero, err
		}
		return zero, &ActionValidationError{Action: e.spec.Name, Reason: err.Error(), Err: err}
	}
	return args, nil
}

// runLayer2Validation runs Validatable.Validate() on args; if args does not implement Validatable,
// it tries &args for value types (pointer receiver). Never calls Validate twice for the same receiver.
func runLayer2Validation[T any](args T) error {
	if err := validateCustom(any(args)); err != nil {
		return err
	}
	if _, ok := any(args).(Validatable); ok {
		return nil
	}
	typ := reflect.TypeOf(args)
	if typ == nil || typ.Kind() == reflect.Pointer {
		return nil
	}
	return validateCustom(any(&args))
}
