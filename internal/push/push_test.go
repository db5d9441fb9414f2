package push

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOnOff(t *testing.T) {
	r := NewRegistry()
	var got []string
	a := r.On("x", func(p json.RawMessage) { got = append(got, "a:"+string(p)) })
	r.On("x", func(p json.RawMessage) { got = append(got, "b:"+string(p)) })

	assert.Equal(t, 2, r.Dispatch("x", json.RawMessage(`1`)))
	r.Off("x", a)
	r.Off("x", a)
	r.Off("y", a)
	assert.Equal(t, 1, r.Dispatch("x", json.RawMessage(`2`)))
	assert.Equal(t, []string{"a:1", "b:1", "b:2"}, got)
	assert.Equal(t, 1, r.Count("x"))
}

func TestRegistryRemovesEmptyEvents(t *testing.T) {
	r := NewRegistry()
	sub := r.On("x", func(json.RawMessage) {})
	r.Off("x", sub)
	assert.Empty(t, r.handlers)
}

func TestBusRecordsAndInjects(t *testing.T) {
	b := NewBus()
	var got []int
	b.On("n", func(p json.RawMessage) {
		var n int
		require.NoError(t, json.Unmarshal(p, &n))
		got = append(got, n)
	})

	require.NoError(t, b.Emit(context.Background(), "out", map[string]int{"a": 1}))
	require.NoError(t, b.Inject("n", 1))
	require.NoError(t, b.Inject("n", 2))

	assert.Equal(t, []int{1, 2}, got)
	sent := b.SentNamed("out")
	require.Len(t, sent, 1)
	assert.JSONEq(t, `{"a":1}`, string(sent[0].Payload))
	assert.Empty(t, b.SentNamed("n"))
}

func TestBusEmitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewBus().Emit(ctx, "x", 1), context.Canceled)
}
