package controller

import "errors"

var (
	// ErrNotEditing reports a field change on a form outside edit mode.
	ErrNotEditing = errors.New("controller: form is not in edit mode")
	// ErrNoField reports an unknown field name.
	ErrNoField = errors.New("controller: field not found")
	// ErrFieldType reports an operation that does not fit the field type.
	ErrFieldType = errors.New("controller: operation not supported by field type")
	// ErrNoOption reports a value outside a select or radio field's options.
	ErrNoOption = errors.New("controller: value is not an option")
)
