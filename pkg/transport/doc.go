// Package transport speaks the fragment protocol: GET returns an HTML
// fragment, POST sends a multipart form and classifies the answer as a
// success or a validation failure. Network and status failures surface as
// *Error values.
package transport
