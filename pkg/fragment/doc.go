// Package fragment parses server-rendered HTML fragments into typed
// descriptions of the forms, listings and triggers they contain.
//
// The parser is the only place markup is walked. Everything downstream works
// on the explicit relations recorded here: a trigger knows the form that owns
// it, a form knows its declared mode, a listing knows its own source URL.
package fragment
