package tool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supbro-dev/Wagner-agent/core"
)

func countingTool(name string, calls *atomic.Int64) Tool {
	return NewFunctionTool(name, "destructive",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, args map[string]any) (any, error) {
			calls.Add(1)
			return "done", nil
		},
	)
}

func TestConfirmedTool_AlwaysInterruptsFirst(t *testing.T) {
	var calls atomic.Int64
	guarded := WithConfirmation(countingTool("drop", &calls), nil, nil)

	args := map[string]any{"id": 7.0, "taskName": "daily-orders"}
	result, err := guarded.Call(context.Background(), args)
	assert.Nil(t, result)

	var interrupt *InterruptError
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "drop", interrupt.Request.Action)
	assert.Equal(t, args, interrupt.Request.Arguments)
	assert.NotEmpty(t, interrupt.Request.Description)
	assert.Equal(t, core.DefaultResumeOptions(), interrupt.Request.Options)

	// The underlying tool must never run before confirmation.
	assert.EqualValues(t, 0, calls.Load())

	// A second call interrupts again; confirmation is per call, not per tool.
	_, err = guarded.Call(context.Background(), args)
	assert.ErrorAs(t, err, &interrupt)
	assert.EqualValues(t, 0, calls.Load())
}

func TestConfirmedTool_UnwrapRunsOriginalArgs(t *testing.T) {
	var calls atomic.Int64
	var seen map[string]any
	inner := NewFunctionTool("drop", "destructive",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ context.Context, args map[string]any) (any, error) {
			calls.Add(1)
			seen = args
			return "done", nil
		},
	)
	guarded := WithConfirmation(inner, func(args map[string]any) string {
		return "really?"
	}, nil)

	args := map[string]any{"id": 7.0}
	_, err := guarded.Call(context.Background(), args)
	var interrupt *InterruptError
	require.ErrorAs(t, err, &interrupt)

	// Accept path: the engine replays the interrupt's original arguments
	// against the unwrapped tool exactly once.
	result, err := guarded.Unwrap().Call(context.Background(), interrupt.Request.Arguments)
	require.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, args, seen)
}

func TestConfirmedTool_DescribeRendersArgs(t *testing.T) {
	guarded := WithConfirmation(countingTool("drop", new(atomic.Int64)),
		func(args map[string]any) string {
			name, _ := args["taskName"].(string)
			return "Delete " + name + "?"
		}, nil)

	_, err := guarded.Call(context.Background(), map[string]any{"taskName": "daily-orders"})
	var interrupt *InterruptError
	require.ErrorAs(t, err, &interrupt)
	assert.Equal(t, "Delete daily-orders?", interrupt.Request.Description)
}

func TestConfirmedTool_ErrorsAsThroughWrapping(t *testing.T) {
	guarded := WithConfirmation(countingTool("drop", new(atomic.Int64)), nil, nil)
	_, err := guarded.Call(context.Background(), nil)

	wrapped := errors.Join(errors.New("dispatch failed"), err)
	var interrupt *InterruptError
	assert.True(t, errors.As(wrapped, &interrupt))
}
