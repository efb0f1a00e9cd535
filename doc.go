// Package toolpick lets an LLM-backed structured-generation engine choose and
// fill in exactly one action per turn from a set of typed function signatures.
//
// # Overview
//
// Actions are described with JSON Schema (function wrappers, Go structs via
// Extractor, tools via FromTool, or YAML catalogs). toolpick compiles them into
// a compact, deduplicated type contract the engine can enforce, then turns the
// engine's growing partial outputs into text deltas and one final Action.
//
// Pipeline: descriptors → Assemble (Compiler + TypeRegistry) → Contract →
// Emit to the engine → Client.Stream → Reconciler.Next per snapshot →
// Reconciler.Finalize → Action.
//
// # Key concepts
//
//   - One slot, one union: every offered action becomes a class tool_<name>
//     whose "name" field is a literal discriminant; the slot holds their union.
//   - Reply path: the built-in reply_to_user action streams its content as
//     append-only text deltas; any other action is buffered until the end.
//   - Lock once: the first non-empty action name decides the run. A later,
//     different name or shrinking reply text aborts it (StreamIntegrityError).
//   - Last snapshot wins: Finalize rederives the Action from the final snapshot
//     and rejects names that were never offered (ActionValidationError).
//
// Errors: SchemaError and ConfigError are raised before any engine call;
// StreamIntegrityError and ActionValidationError come from a run. None are
// retried here.
//
// # Example
//
//	type WeatherArgs struct {
//	    Location string `json:"location" jsonschema:"description=City name"`
//	}
//	weather, err := toolpick.NewExtractor[WeatherArgs]("get_weather", "Get the current weather")
//	if err != nil { ... }
//	contract, err := toolpick.Assemble([]toolpick.Descriptor{weather}, toolpick.DefaultSlot, toolpick.WithReply())
//	if err != nil { ... }
//	action, err := toolpick.Stream(ctx, client, contract, msgs, func(d toolpick.Delta) error {
//	    fmt.Print(d.Text)
//	    return nil
//	})
//	if err != nil { ... }
//	if !action.IsReply() {
//	    args, err := weather.Parse(action)
//	    ...
//	}
package toolpick
