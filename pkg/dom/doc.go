// Package dom holds the live document: the page content, the overlay
// singleton, listing slots, and the form and trigger nodes materialised from
// parsed fragments.
//
// Nodes are addressed by Handle. Every insertion allocates fresh handles and
// every replacement releases the old ones together with their event
// bindings, so a binding never survives a fragment swap. A Document is not
// safe for concurrent use; it is owned by the goroutine that drives the event
// loop.
package dom
