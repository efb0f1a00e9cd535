package toolpick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalize_Reply(t *testing.T) {
	a, err := Finalize(reply("Done."), nil)
	require.NoError(t, err)
	assert.True(t, a.IsReply())
	assert.Equal(t, "Done.", a.Content())

	a, err = Finalize(reply(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, "", a.Content())
	assert.Equal(t, map[string]any{"content": ""}, a.Arguments())

	for _, content := range []any{true, 42.0, map[string]any{"text": "hi"}} {
		a, err = Finalize(reply(content), nil)
		require.NoError(t, err)
		assert.Equal(t, "", a.Content(), "content %v", content)
	}
}

func TestFinalize_KnownAction(t *testing.T) {
	s := Snapshot{Name: "get_weather", Arguments: map[string]any{
		"location": "Hanoi",
		"extra":    map[string]any{"days": []any{1.0, 2.0}},
	}}
	a, err := Finalize(s, []string{"get_weather"})
	require.NoError(t, err)
	assert.Equal(t, "get_weather", a.Name())
	assert.False(t, a.IsReply())
	assert.Equal(t, "", a.Content())

	// The action does not alias the snapshot.
	s.Arguments["extra"].(map[string]any)["days"].([]any)[0] = 99.0
	s.Arguments["location"] = "Paris"
	args := a.Arguments()
	assert.Equal(t, "Hanoi", args["location"])
	assert.Equal(t, []any{1.0, 2.0}, args["extra"].(map[string]any)["days"])
}

func TestFinalize_Rejections(t *testing.T) {
	known := []string{"get_weather", "search_products"}

	_, err := Finalize(Snapshot{}, known)
	require.Error(t, err)
	var ave *ActionValidationError
	require.ErrorAs(t, err, &ave)
	assert.Equal(t, "no action was selected", ave.Reason)
	assert.Equal(t, known, ave.Known)

	_, err = Finalize(Snapshot{Name: "drop_tables"}, known)
	require.ErrorAs(t, err, &ave)
	assert.Equal(t, "drop_tables", ave.Action)
	assert.ErrorIs(t, err, ErrActionValidation)
	assert.Contains(t, err.Error(), "known actions: get_weather, search_products")
}

func TestFinalize_Idempotent(t *testing.T) {
	s := Snapshot{Name: "get_weather", Arguments: map[string]any{"location": "Hanoi"}}
	first, err := Finalize(s, []string{"get_weather"})
	require.NoError(t, err)
	second, err := Finalize(s, []string{"get_weather"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestContract_FinalizeValidatesArguments(t *testing.T) {
	c, err := Assemble([]Descriptor{mustParse(t, weatherJSON)}, DefaultSlot,
		WithReply(), WithArgumentValidation(), WithLogger(quietLogger()))
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		a, err := c.Finalize(Snapshot{Name: "get_weather", Arguments: map[string]any{"location": "Hanoi", "unit": "celsius"}})
		require.NoError(t, err)
		assert.Equal(t, "celsius", a.Arguments()["unit"])
	})
	t.Run("null optional is accepted and kept", func(t *testing.T) {
		a, err := c.Finalize(Snapshot{Name: "get_weather", Arguments: map[string]any{"location": "Hanoi", "unit": nil}})
		require.NoError(t, err)
		v, ok := a.Arguments()["unit"]
		assert.True(t, ok)
		assert.Nil(t, v)
	})
	t.Run("wrong type", func(t *testing.T) {
		_, err := c.Finalize(Snapshot{Name: "get_weather", Arguments: map[string]any{"location": 12.0}})
		require.Error(t, err)
		var ave *ActionValidationError
		require.ErrorAs(t, err, &ave)
		assert.Equal(t, "get_weather", ave.Action)
		assert.Error(t, ave.Err)
	})
	t.Run("missing required", func(t *testing.T) {
		_, err := c.Finalize(Snapshot{Name: "get_weather", Arguments: map[string]any{"unit": "celsius"}})
		assert.True(t, IsActionValidationError(err))
	})
	t.Run("reply skips validation", func(t *testing.T) {
		a, err := c.Finalize(reply("Hi"))
		require.NoError(t, err)
		assert.Equal(t, "Hi", a.Content())
	})
}

func TestContract_FinalizeWithoutValidation(t *testing.T) {
	c, err := Assemble([]Descriptor{mustParse(t, weatherJSON)}, DefaultSlot, WithLogger(quietLogger()))
	require.NoError(t, err)
	a, err := c.Finalize(Snapshot{Name: "get_weather", Arguments: map[string]any{"location": 12.0}})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, a.Arguments()["location"], 0)
}

func TestContract_FinalizeList(t *testing.T) {
	c, err := Assemble([]Descriptor{mustParse(t, weatherJSON)}, DefaultSlot,
		WithReply(), WithMultipleActions(), WithLogger(quietLogger()))
	require.NoError(t, err)

	actions, err := c.FinalizeList([]Snapshot{
		{Name: "get_weather", Arguments: map[string]any{"location": "Hanoi"}},
		reply("Checking."),
	})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "get_weather", actions[0].Name())
	assert.True(t, actions[1].IsReply())

	_, err = c.FinalizeList([]Snapshot{reply("ok"), {Name: "unknown"}})
	assert.True(t, IsActionValidationError(err))

	actions, err = c.FinalizeList(nil)
	require.NoError(t, err)
	assert.Empty(t, actions)
}
