package loader

import (
	"context"

	"github.com/goliatone/go-embedform/pkg/dom"
)

// ListingRefresher reloads one listing slot from its own action URL.
type ListingRefresher struct {
	loader *Loader
	slot   *dom.ListingSlot
}

// Listing returns a refresher for slot. A nil slot yields a refresher that
// does nothing.
func (l *Loader) Listing(slot *dom.ListingSlot) *ListingRefresher {
	return &ListingRefresher{loader: l, slot: slot}
}

// Slot returns the refreshed slot.
func (r *ListingRefresher) Slot() *dom.ListingSlot {
	if r == nil {
		return nil
	}
	return r.slot
}

// Refresh issues one GET of the listing's action URL and replaces the
// listing wholesale, initializing its contents in display mode.
func (r *ListingRefresher) Refresh(ctx context.Context) {
	if r == nil || r.slot == nil {
		return
	}
	l := r.loader
	if r.slot.Action == "" {
		l.logger.Warn().Str("listing", r.slot.ID).Msg("listing has no action url, skipping refresh")
		l.metrics.ListingRefreshed("skipped")
		return
	}
	l.Load(ctx, r.slot.Action, l.doc.ListingTarget(r.slot),
		StartInEdit(false),
		OnDone(func(_ context.Context, err error) {
			if err != nil {
				l.metrics.ListingRefreshed("error")
				return
			}
			l.metrics.ListingRefreshed("ok")
		}),
	)
}
