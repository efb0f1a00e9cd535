package toolpick

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(content any) Snapshot {
	if content == nil {
		return Snapshot{Name: ReplyActionName}
	}
	return Snapshot{Name: ReplyActionName, Arguments: map[string]any{"content": content}}
}

func TestReconciler_ReplyDeltas(t *testing.T) {
	rec := NewReconciler("get_weather")
	snaps := []Snapshot{
		{},
		reply(nil),
		reply("Hel"),
		reply("Hello"),
		reply("Hello world"),
	}
	var texts []string
	for _, s := range snaps {
		d, err := rec.Next(s)
		require.NoError(t, err)
		texts = append(texts, d.Text)
	}
	assert.Equal(t, []string{"", "", "Hel", "lo", " world"}, texts)
	assert.Equal(t, StateText, rec.State())
	assert.Equal(t, ReplyActionName, rec.Locked())
	assert.Equal(t, "Hello world", rec.Text())

	action, err := rec.Finalize(reply("Hello world"))
	require.NoError(t, err)
	assert.True(t, action.IsReply())
	assert.Equal(t, "Hello world", action.Content())
	assert.Equal(t, StateDone, rec.State())
}

func TestReconciler_ActionIsBuffered(t *testing.T) {
	rec := NewReconciler("get_weather")
	snaps := []Snapshot{
		{Name: "get_weather"},
		{Name: "get_weather", Arguments: map[string]any{"location": "Ha"}},
		{Name: "get_weather", Arguments: map[string]any{"location": "Hanoi"}},
	}
	for _, s := range snaps {
		d, err := rec.Next(s)
		require.NoError(t, err)
		assert.Equal(t, "get_weather", d.ToolName)
		assert.Empty(t, d.Text)
	}
	assert.Equal(t, StateAction, rec.State())

	action, err := rec.Finalize(snaps[len(snaps)-1])
	require.NoError(t, err)
	assert.Equal(t, "get_weather", action.Name())
	assert.Equal(t, map[string]any{"location": "Hanoi"}, action.Arguments())
}

func TestReconciler_EmptyNameKeepsLock(t *testing.T) {
	rec := NewReconciler("get_weather")
	_, err := rec.Next(reply("Hi"))
	require.NoError(t, err)

	d, err := rec.Next(Snapshot{})
	require.NoError(t, err)
	assert.Equal(t, Delta{ToolName: ReplyActionName}, d)
	assert.Equal(t, StateText, rec.State())
	assert.Equal(t, "Hi", rec.Text())
}

func TestReconciler_IntegrityViolations(t *testing.T) {
	tests := []struct {
		name  string
		snaps []Snapshot
		want  string
	}{
		{
			name:  "action changes after lock",
			snaps: []Snapshot{{Name: "get_weather"}, {Name: "search_products"}},
			want:  `action changed from "get_weather" to "search_products"`,
		},
		{
			name:  "reply switches to action",
			snaps: []Snapshot{reply("Hel"), {Name: "get_weather"}},
			want:  "action changed",
		},
		{
			name:  "reply text shrinks",
			snaps: []Snapshot{reply("Hello"), reply("Hel")},
			want:  "not an extension",
		},
		{
			name:  "reply text rewritten",
			snaps: []Snapshot{reply("Hello"), reply("Help!")},
			want:  "not an extension",
		},
		{
			name:  "reply content not a string",
			snaps: []Snapshot{reply(42.0)},
			want:  "must be a string",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewReconciler("get_weather", "search_products")
			var err error
			for _, s := range tt.snaps {
				if _, err = rec.Next(s); err != nil {
					break
				}
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStreamIntegrity)
			assert.True(t, IsStreamIntegrityError(err))
			assert.Contains(t, err.Error(), tt.want)

			// The run stays aborted.
			_, again := rec.Next(reply("Hello world"))
			assert.Same(t, err, again)
			_, fin := rec.Finalize(reply("Hello world"))
			assert.Same(t, err, fin)
		})
	}
}

func TestReconciler_DoneRejectsFurtherInput(t *testing.T) {
	rec := NewReconciler()
	_, err := rec.Finalize(reply("ok"))
	require.NoError(t, err)

	_, err = rec.Next(reply("ok"))
	require.ErrorIs(t, err, ErrReconcilerDone)
	_, err = rec.Finalize(reply("ok"))
	require.ErrorIs(t, err, ErrReconcilerDone)
}

func TestReconciler_FinalizeUsesLastSnapshot(t *testing.T) {
	rec := NewReconciler("get_weather")
	_, err := rec.Next(reply("Hello"))
	require.NoError(t, err)

	action, err := rec.Finalize(reply("Hello there"))
	require.NoError(t, err)
	assert.Equal(t, "Hello there", action.Content())
}

func TestReconciler_FinalizeUnknownAction(t *testing.T) {
	rec := NewReconciler("get_weather")
	_, err := rec.Next(Snapshot{Name: "delete_everything"})
	require.NoError(t, err, "unknown names are only rejected at the end")

	_, err = rec.Finalize(Snapshot{Name: "delete_everything"})
	require.Error(t, err)
	var ave *ActionValidationError
	require.ErrorAs(t, err, &ave)
	assert.Equal(t, "delete_everything", ave.Action)
	assert.Equal(t, []string{"get_weather"}, ave.Known)
}

func TestNewReconciler_CopiesKnown(t *testing.T) {
	known := []string{"get_weather"}
	rec := NewReconciler(known...)
	known[0] = "other"
	_, err := rec.Finalize(Snapshot{Name: "get_weather"})
	require.NoError(t, err)
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Snapshot
		wantErr bool
	}{
		{name: "missing slot", raw: `{}`},
		{name: "null slot", raw: `{"selected_tool": null}`},
		{name: "name only", raw: `{"selected_tool": {"name": "get_weather"}}`, want: Snapshot{Name: "get_weather"}},
		{
			name: "with arguments",
			raw:  `{"selected_tool": {"name": "get_weather", "arguments": {"location": "Hanoi"}}}`,
			want: Snapshot{Name: "get_weather", Arguments: map[string]any{"location": "Hanoi"}},
		},
		{name: "not an object", raw: `[1, 2]`, wantErr: true},
		{name: "slot of wrong shape", raw: `{"selected_tool": "get_weather"}`, wantErr: true},
		{name: "truncated", raw: `{"selected_tool": {"name": "get_`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSnapshot([]byte(tt.raw), DefaultSlot)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsStreamIntegrityError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSnapshotList(t *testing.T) {
	list, err := DecodeSnapshotList([]byte(`{"selected_tool": [
	  {"name": "get_weather", "arguments": {"location": "Hanoi"}},
	  {"name": "reply_to_user", "arguments": {"content": "Checking."}}
	]}`), DefaultSlot)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "get_weather", list[0].Name)
	assert.Equal(t, ReplyActionName, list[1].Name)

	list, err = DecodeSnapshotList([]byte(`{}`), DefaultSlot)
	require.NoError(t, err)
	assert.Nil(t, list)

	_, err = DecodeSnapshotList([]byte(`{"selected_tool": {"name": "x"}}`), DefaultSlot)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamIntegrity))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "undecided", StateUndecided.String())
	assert.Equal(t, "text", StateText.String())
	assert.Equal(t, "action", StateAction.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "state(9)", State(9).String())
}
