package dom

import "errors"

var (
	// ErrNotFound reports a handle that does not resolve to a live node.
	ErrNotFound = errors.New("dom: node not found")
	// ErrUnbound reports an event dispatched to a node with no handler.
	ErrUnbound = errors.New("dom: no handler bound")
)
