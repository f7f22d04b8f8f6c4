package overlay

import "errors"

var (
	// ErrNoEmbedURL reports an overlay trigger without a fragment address.
	ErrNoEmbedURL = errors.New("overlay: trigger has no embed url")
	// ErrNoNavigator reports a nested trigger with no navigator configured.
	ErrNoNavigator = errors.New("overlay: no navigator configured")
)
