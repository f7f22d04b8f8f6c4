package sample

import "errors"

var (
	// ErrNotFound reports a blog or post that does not exist.
	ErrNotFound = errors.New("sample: not found")
	// ErrUnknownSchema reports a validation request for a schema the
	// document does not define.
	ErrUnknownSchema = errors.New("sample: unknown schema")
)
