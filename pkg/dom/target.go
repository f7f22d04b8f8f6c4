package dom

import "github.com/goliatone/go-embedform/pkg/fragment"

// Target is a container whose content a fragment load replaces wholesale.
type Target interface {
	Name() string
	// Fill replaces the content with the fragment and returns the inserted
	// forms in document order.
	Fill(frag *fragment.Fragment) []*FormNode
	// Fail replaces the content with a message.
	Fail(message string)
}

// PageTarget addresses the page content.
func (d *Document) PageTarget() Target { return pageTarget{d} }

// OverlayTarget addresses the overlay content slot.
func (d *Document) OverlayTarget() Target { return overlayTarget{d} }

// ListingTarget addresses a listing slot.
func (d *Document) ListingTarget(slot *ListingSlot) Target { return listingTarget{d, slot} }

type pageTarget struct{ d *Document }

func (t pageTarget) Name() string { return "page" }
func (t pageTarget) Fill(frag *fragment.Fragment) []*FormNode { return t.d.ReplacePage(frag) }
func (t pageTarget) Fail(message string) { t.d.FailPage(message) }

type overlayTarget struct{ d *Document }

func (t overlayTarget) Name() string { return "overlay" }
func (t overlayTarget) Fill(frag *fragment.Fragment) []*FormNode { return t.d.FillOverlay(frag) }
func (t overlayTarget) Fail(message string) { t.d.FailOverlay(message) }

type listingTarget struct {
	d    *Document
	slot *ListingSlot
}

func (t listingTarget) Name() string { return "listing" }

func (t listingTarget) Fill(frag *fragment.Fragment) []*FormNode {
	t.d.RefillListing(t.slot, frag)
	return nil
}

func (t listingTarget) Fail(message string) { t.d.FailListing(t.slot, message) }
