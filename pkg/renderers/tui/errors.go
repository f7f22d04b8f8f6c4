package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrQuit signals the user chose to end the session.
	ErrQuit = errors.New("tui: quit")
)
