package tool

import (
	"context"
	"fmt"

	"github.com/supbro-dev/Wagner-agent/core"
)

// CancelledResult is the function response recorded when a confirmation is
// declined. The model sees it as the tool outcome and explains the
// cancellation to the user.
const CancelledResult = "the call was cancelled by the user"

// InterruptError is returned by a confirmation-guarded tool on first
// invocation. It carries the request the client must answer before the call
// can proceed. The workflow converts it into a suspended turn rather than a
// failure.
type InterruptError struct {
	Request core.InterruptRequest
}

func (e *InterruptError) Error() string {
	return fmt.Sprintf("tool %q awaiting confirmation", e.Request.Action)
}

// ConfirmedTool wraps a tool so every call is intercepted with an
// InterruptError carrying the original arguments. After the client accepts,
// the workflow executes the underlying tool directly via Unwrap.
type ConfirmedTool struct {
	inner    Tool
	describe func(args map[string]any) string
	options  []core.ResumeOption
}

// WithConfirmation guards a tool behind human confirmation. describe renders
// the user-facing question for a given argument set; nil produces a generic
// prompt.
func WithConfirmation(inner Tool, describe func(args map[string]any) string, options []core.ResumeOption) *ConfirmedTool {
	if describe == nil {
		describe = func(map[string]any) string {
			return fmt.Sprintf("Confirm invocation of %s?", inner.Name())
		}
	}
	if len(options) == 0 {
		options = core.DefaultResumeOptions()
	}
	return &ConfirmedTool{inner: inner, describe: describe, options: options}
}

// Name returns the wrapped tool's name.
func (t *ConfirmedTool) Name() string { return t.inner.Name() }

// Description returns the wrapped tool's description.
func (t *ConfirmedTool) Description() string { return t.inner.Description() }

// Parameters returns the wrapped tool's parameter schema.
func (t *ConfirmedTool) Parameters() map[string]any { return t.inner.Parameters() }

// Call never executes the underlying tool; it raises the confirmation request
// with the call's original arguments.
func (t *ConfirmedTool) Call(_ context.Context, args map[string]any) (any, error) {
	return nil, &InterruptError{Request: core.InterruptRequest{
		Action:      t.inner.Name(),
		Arguments:   args,
		Description: t.describe(args),
		Options:     t.options,
	}}
}

// Unwrap returns the guarded tool for execution after an accepted resume.
func (t *ConfirmedTool) Unwrap() Tool { return t.inner }
