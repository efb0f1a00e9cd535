package toolpick

import (
	"bytes"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// Snapshot is the model's partial output for the action slot at one point of a
// stream. Each snapshot supersedes the previous one. An empty Name means the
// model has not chosen an action yet.
type Snapshot struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Delta is one incremental event produced by a Reconciler. Text is empty unless
// new reply text arrived.
type Delta struct {
	ToolName string
	Text     string
}

// DecodeSnapshot extracts the snapshot held in slot from one raw model output
// object. A missing or null slot decodes to the zero Snapshot.
func DecodeSnapshot(raw []byte, slot string) (Snapshot, error) {
	v, ok, err := slotValue(raw, slot)
	if err != nil || !ok {
		return Snapshot{}, err
	}
	var s Snapshot
	if err := json.Unmarshal(v, &s); err != nil {
		return Snapshot{}, malformed("snapshot", err)
	}
	return s, nil
}

// DecodeSnapshotList extracts the list of snapshots held in slot, for contracts
// assembled WithMultipleActions.
func DecodeSnapshotList(raw []byte, slot string) ([]Snapshot, error) {
	v, ok, err := slotValue(raw, slot)
	if err != nil || !ok {
		return nil, err
	}
	var list []Snapshot
	if err := json.Unmarshal(v, &list); err != nil {
		return nil, malformed("snapshot list", err)
	}
	return list, nil
}

func slotValue(raw []byte, slot string) (json.RawMessage, bool, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false, malformed("model output", err)
	}
	v, ok := top[slot]
	if !ok || isNull(v) {
		return nil, false, nil
	}
	return v, true, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// DecodeSnapshot decodes raw model output against the contract's slot.
func (c *Contract) DecodeSnapshot(raw []byte) (Snapshot, error) {
	return DecodeSnapshot(raw, c.slot)
}

// DecodeSnapshotList decodes raw model output holding a list of actions.
func (c *Contract) DecodeSnapshotList(raw []byte) ([]Snapshot, error) {
	return DecodeSnapshotList(raw, c.slot)
}

// State is the lifecycle state of a Reconciler.
type State int

const (
	// StateUndecided: no action name observed yet.
	StateUndecided State = iota
	// StateText: the reply action is locked; reply text is streamed.
	StateText
	// StateAction: a non-reply action is locked; nothing is streamed.
	StateAction
	// StateDone: Finalize was called.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUndecided:
		return "undecided"
	case StateText:
		return "text"
	case StateAction:
		return "action"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reconciler turns the snapshots of one streaming run into text deltas and,
// at the end, one finalized Action. The first non-empty action name locks the
// run; the reply action streams its content as it grows, every other action is
// buffered until Finalize.
//
// Once Next returns an error the run is aborted and every later call returns
// the same error. A Reconciler is not safe for concurrent use.
type Reconciler struct {
	state    State
	locked   string
	previous string
	err      error
	finalize func(Snapshot) (Action, error)
}

// NewReconciler creates a Reconciler whose Finalize accepts the reply action and
// the given action names.
func NewReconciler(known ...string) *Reconciler {
	known = append([]string(nil), known...)
	return &Reconciler{finalize: func(s Snapshot) (Action, error) { return Finalize(s, known) }}
}

// NewReconciler creates a Reconciler that finalizes against c.
func (c *Contract) NewReconciler() *Reconciler {
	return &Reconciler{finalize: c.Finalize}
}

// State returns the current state.
func (r *Reconciler) State() State { return r.state }

// Locked returns the locked action name, or "" while undecided.
func (r *Reconciler) Locked() string { return r.locked }

// Text returns the reply text accumulated so far.
func (r *Reconciler) Text() string { return r.previous }

// Next consumes one snapshot and returns the resulting delta. The delta's Text
// is the newly appended reply text, or empty.
func (r *Reconciler) Next(s Snapshot) (Delta, error) {
	if r.err != nil {
		return Delta{}, r.err
	}
	if r.state == StateDone {
		return Delta{}, ErrReconcilerDone
	}

	switch {
	case s.Name == "":
		if r.state == StateUndecided {
			return Delta{}, nil
		}
	case r.state == StateUndecided:
		r.locked = s.Name
		r.state = StateAction
		if s.Name == ReplyActionName {
			r.state = StateText
		}
	case s.Name != r.locked:
		return Delta{}, r.fail(fmt.Sprintf("action changed from %q to %q after it was selected", r.locked, s.Name))
	}

	if r.state == StateAction {
		return Delta{ToolName: r.locked}, nil
	}

	content, present, err := replyContent(s.Arguments)
	if err != nil {
		return Delta{}, r.fail(err.Error())
	}
	if !present {
		return Delta{ToolName: r.locked}, nil
	}
	if !strings.HasPrefix(content, r.previous) {
		return Delta{}, r.fail(fmt.Sprintf("reply text is not an extension of the previous snapshot (had %d bytes, got %d)",
			len(r.previous), len(content)))
	}
	d := Delta{ToolName: r.locked, Text: content[len(r.previous):]}
	r.previous = content
	return d, nil
}

// Finalize produces the final Action from the last snapshot of the stream and
// ends the run. Accumulated text is not used: the last snapshot is authoritative.
func (r *Reconciler) Finalize(last Snapshot) (Action, error) {
	if r.err != nil {
		return Action{}, r.err
	}
	if r.state == StateDone {
		return Action{}, ErrReconcilerDone
	}
	r.state = StateDone
	return r.finalize(last)
}

func (r *Reconciler) fail(reason string) error {
	r.err = &StreamIntegrityError{Reason: reason}
	return r.err
}

// replyContent reads the reply text from a reply action's arguments.
func replyContent(args map[string]any) (content string, present bool, err error) {
	v, ok := args[fieldContent]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("reply content must be a string, got %T", v)
	}
	return s, true, nil
}
