package transport

import (
	"context"
	"net/http"
)

const (
	// HeaderRequest marks requests issued by the embedded-form client.
	HeaderRequest = "X-Embed-Request"
	// HeaderOutcome carries the server's explicit submission outcome.
	HeaderOutcome = "X-Embed-Outcome"
	// OutcomeInvalidValue is the HeaderOutcome value for validation failure.
	OutcomeInvalidValue = "invalid"
	// DefaultLegacyMarker is the body substring treated as a validation
	// failure in legacy mode.
	DefaultLegacyMarker = "form-errors"
)

// Outcome classifies a completed submission.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeInvalid Outcome = "invalid"
)

// Response is a fragment returned by the server.
type Response struct {
	URL     string
	Status  int
	Outcome Outcome
	Header  http.Header
	Body    []byte
}

// Value is a single text form value.
type Value struct {
	Name  string
	Value string
}

// FilePart is a file attached to a form.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Payload is a serialized form ready to send.
type Payload struct {
	Fields []Value
	Files  []FilePart
}

// Get returns the first value for name.
func (p Payload) Get(name string) (string, bool) {
	for _, v := range p.Fields {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// Client is the network boundary used by the loader and the submission
// coordinator.
type Client interface {
	Fetch(ctx context.Context, url string) (*Response, error)
	Submit(ctx context.Context, method, url string, payload Payload) (*Response, error)
}
