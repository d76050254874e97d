package core

// Resume decision types understood by a suspended turn.
const (
	// ResumeAccept executes the pending tool call with its original arguments.
	ResumeAccept = "accept"
	// ResumeCancel skips the pending tool call and records a cancellation result.
	ResumeCancel = "cancel"
)

// ResumeOption describes one decision the client may return for an interrupt.
type ResumeOption struct {
	Type        string `json:"type"`        // Resume type token (accept, cancel)
	Description string `json:"description"` // Human readable explanation
}

// InterruptRequest is surfaced when a guarded tool call requires human
// confirmation before execution. The original call arguments are carried
// verbatim so an accepted resume replays exactly what the model requested.
type InterruptRequest struct {
	Action      string         `json:"action"`      // Tool name awaiting confirmation
	Arguments   map[string]any `json:"args"`        // Original call arguments
	Description string         `json:"description"` // Prompt shown to the user
	Options     []ResumeOption `json:"confirm_option_list"`
}

// DefaultResumeOptions returns the standard accept/cancel option pair.
func DefaultResumeOptions() []ResumeOption {
	return []ResumeOption{
		{Type: ResumeAccept, Description: "Proceed with the operation"},
		{Type: ResumeCancel, Description: "Cancel the operation"},
	}
}
