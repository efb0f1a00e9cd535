package toolpick

import (
	"context"

	json "github.com/goccy/go-json"
)

// Invoke runs one non-streaming turn and returns the selected action.
func Invoke(ctx context.Context, client Client, contract *Contract, messages []Message) (Action, error) {
	if contract.Multiple() {
		return Action{}, &ConfigError{Reason: "contract selects multiple actions, use InvokeAll"}
	}
	out, err := client.Call(ctx, Request{Contract: contract, Messages: messages})
	if err != nil {
		return Action{}, err
	}
	snap, err := contract.DecodeSnapshot(out)
	if err != nil {
		return Action{}, err
	}
	return contract.Finalize(snap)
}

// InvokeAll runs one non-streaming turn against a contract assembled
// WithMultipleActions and returns the selected actions in order.
func InvokeAll(ctx context.Context, client Client, contract *Contract, messages []Message) ([]Action, error) {
	if !contract.Multiple() {
		a, err := Invoke(ctx, client, contract, messages)
		if err != nil {
			return nil, err
		}
		return []Action{a}, nil
	}
	out, err := client.Call(ctx, Request{Contract: contract, Messages: messages})
	if err != nil {
		return nil, err
	}
	list, err := contract.DecodeSnapshotList(out)
	if err != nil {
		return nil, err
	}
	return contract.FinalizeList(list)
}

// Stream runs one streaming turn. Reply text is passed to yield as it grows;
// deltas without text are not delivered. When the stream ends, the last
// snapshot is finalized into the returned Action.
//
// If yield returns an error the run stops with ErrStreamAborted wrapping it.
// If ctx is cancelled, any buffered action is discarded and ctx.Err() is
// returned; text already delivered stays delivered.
func Stream(ctx context.Context, client Client, contract *Contract, messages []Message, yield func(Delta) error) (Action, error) {
	if contract.Multiple() {
		return Action{}, &ConfigError{Reason: "streaming is not supported for contracts that select multiple actions"}
	}
	rec := contract.NewReconciler()
	var last Snapshot
	err := client.Stream(ctx, Request{Contract: contract, Messages: messages}, func(out json.RawMessage) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		snap, err := contract.DecodeSnapshot(out)
		if err != nil {
			return err
		}
		d, err := rec.Next(snap)
		if err != nil {
			return err
		}
		last = snap
		if d.Text == "" {
			return nil
		}
		if err := yield(d); err != nil {
			return wrapYieldError(err)
		}
		return nil
	})
	if err != nil {
		return Action{}, err
	}
	if err := ctx.Err(); err != nil {
		return Action{}, err
	}
	return rec.Finalize(last)
}
