package toolpick

import (
	"bytes"
	"net/url"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
)

// Validatable is implemented by argument structs that need custom business validation.
// Called after schema validation and decoding.
type Validatable interface {
	Validate() error
}

// schemaValidator validates a JSON-like value (map[string]any, []any, float64, ...).
// *jsv.Schema implements it.
type schemaValidator interface {
	Validate(v any) error
}

// compileValidator compiles the argument schema of action name into a validator.
// A nil schema yields a nil validator.
func compileValidator(name string, s *jsonschema.Schema) (schemaValidator, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc, err := jsv.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if m, ok := doc.(map[string]any); ok {
		stripSchemaIDs(m)
	}
	loc := "mem://toolpick/args/" + url.PathEscape(name) + ".json"
	c := jsv.NewCompiler()
	if err := c.AddResource(loc, doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(loc)
	if err != nil {
		return nil, err
	}
	return sch, nil
}

// validateAgainstSchema runs schema validation on an already decoded value.
func validateAgainstSchema(validate schemaValidator, v any) error {
	if validate == nil {
		return nil
	}
	return validate.Validate(v)
}

// validateCustom runs Validatable if args implements it.
func validateCustom(args any) error {
	if v, ok := args.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// walkSchema recursively visits every map node in a decoded schema tree.
func walkSchema(schemaMap map[string]any, visit func(map[string]any)) {
	if schemaMap == nil {
		return
	}
	visit(schemaMap)
	for _, val := range schemaMap {
		switch v := val.(type) {
		case map[string]any:
			walkSchema(v, visit)
		case []any:
			for _, item := range v {
				if m2, ok := item.(map[string]any); ok {
					walkSchema(m2, visit)
				}
			}
		}
	}
}

// stripSchemaIDs removes id and $id so references resolve against the in-memory
// location. A property named "id" is an object, not a string, and is kept.
func stripSchemaIDs(schemaMap map[string]any) {
	walkSchema(schemaMap, func(n map[string]any) {
		delete(n, "$id")
		if _, ok := n["id"].(string); ok {
			delete(n, "id")
		}
	})
}

// pruneNulls returns a copy of v without null-valued object members. Structured
// output engines emit null for omitted optional fields, which the original
// argument schema usually does not allow.
func pruneNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = pruneNulls(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = pruneNulls(val)
		}
		return out
	default:
		return v
	}
}
