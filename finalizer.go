package toolpick

import (
	"slices"
)

// Finalize derives the single Action of a run from its last snapshot.
//
// The reply action always passes and carries its content ("" when absent or
// not a string). Any other name must be one of known, otherwise an
// ActionValidationError is returned; an empty name is never treated as a
// reply. Finalize does not keep state, so finalizing the same snapshot twice
// yields equal actions.
func Finalize(s Snapshot, known []string) (Action, error) {
	return finalize(s, known, nil)
}

// Finalize derives the run's Action from the last snapshot against the
// contract's actions, validating arguments when the contract was assembled
// WithArgumentValidation.
func (c *Contract) Finalize(s Snapshot) (Action, error) {
	return finalize(s, c.names, c.validators)
}

// FinalizeList finalizes every snapshot of a multiple-action output, in order.
func (c *Contract) FinalizeList(list []Snapshot) ([]Action, error) {
	out := make([]Action, 0, len(list))
	for _, s := range list {
		a, err := c.Finalize(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func finalize(s Snapshot, known []string, validators map[string]schemaValidator) (Action, error) {
	if s.Name == ReplyActionName {
		// Non-string content falls back to "" like absent content.
		content, _, _ := replyContent(s.Arguments)
		return Action{name: ReplyActionName, arguments: map[string]any{fieldContent: content}}, nil
	}
	if s.Name == "" {
		return Action{}, &ActionValidationError{Known: slices.Clone(known), Reason: "no action was selected"}
	}
	if !slices.Contains(known, s.Name) {
		return Action{}, &ActionValidationError{Action: s.Name, Known: slices.Clone(known), Reason: "not a registered action"}
	}
	args := cloneArguments(s.Arguments)
	if v := validators[s.Name]; v != nil {
		if err := validateAgainstSchema(v, pruneNulls(args)); err != nil {
			return Action{}, &ActionValidationError{Action: s.Name, Reason: "arguments do not match the parameter schema", Err: err}
		}
	}
	return Action{name: s.Name, arguments: args}, nil
}
