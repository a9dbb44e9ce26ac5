package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Msg string `json:"msg"`
}

func echoHandler(_ context.Context, raw json.RawMessage, report ProgressFunc) (any, error) {
	in, err := Decode[echoInput](raw)
	if err != nil {
		return nil, err
	}
	report(50)
	return map[string]string{"echo": in.Msg}, nil
}

func TestRegistry_Run(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoHandler)

	out, err := r.Run(context.Background(), "echo", echoInput{Msg: "hi"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"echo": "hi"}, out)

	out, err = r.Run(context.Background(), "echo", json.RawMessage(`{"msg":"raw"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"echo": "raw"}, out)

	assert.True(t, r.Has("echo"))
	assert.Equal(t, []string{"echo"}, r.Kinds())
}

func TestRegistry_Errors(t *testing.T) {
	r := NewRegistry()
	r.Register("echo", echoHandler)

	_, err := r.Run(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = r.Run(context.Background(), "echo", json.RawMessage(`{"msg":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task: decode input")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx, "echo", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
