package lifecycle

import "errors"

var (
	// ErrNotWired reports a click or submit before Wire was called.
	ErrNotWired = errors.New("lifecycle: collaborators not wired")
	// ErrUnknownAction reports a trigger with an unrecognised action.
	ErrUnknownAction = errors.New("lifecycle: unknown trigger action")
)
