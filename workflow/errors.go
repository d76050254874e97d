package workflow

import "errors"

var (
	// ErrProtocol marks violations of the workflow's conversational protocol:
	// unexpected message roles, unknown resume types, corrupted state.
	ErrProtocol = errors.New("workflow: protocol violation")

	// ErrToolRoundsExceeded is returned when a single turn dispatches more
	// tool rounds than the configured limit allows.
	ErrToolRoundsExceeded = errors.New("workflow: tool round limit exceeded")

	// ErrTurnInFlight is returned when a turn is started for a session that
	// is already processing one.
	ErrTurnInFlight = errors.New("workflow: turn already in flight for session")

	// ErrNoPendingInterrupt is returned when a resume arrives for a session
	// with no suspended turn.
	ErrNoPendingInterrupt = errors.New("workflow: no pending interrupt")
)
