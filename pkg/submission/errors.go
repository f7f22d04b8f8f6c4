package submission

import "errors"

var (
	// ErrNotEditable reports a submit from a form that is not in edit mode.
	ErrNotEditable = errors.New("submission: form is not in edit mode")
	// ErrInFlight reports a submit while the form's previous submission is
	// still outstanding.
	ErrInFlight = errors.New("submission: submission already in flight")
)
