package loader_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/eventloop"
	"github.com/goliatone/go-embedform/pkg/loader"
	"github.com/goliatone/go-embedform/pkg/metrics"
	"github.com/goliatone/go-embedform/pkg/testsupport"
)

type initCall struct {
	ID   string
	Edit bool
}

type recorder struct {
	binds int
	inits []initCall
}

func (r *recorder) BindTriggers(context.Context) { r.binds++ }

func (r *recorder) Initialize(_ context.Context, form *dom.FormNode, startInEdit bool) error {
	r.inits = append(r.inits, initCall{ID: form.ID, Edit: startInEdit})
	return nil
}

func run(t *testing.T, loop *eventloop.Loop) {
	t.Helper()
	if err := loop.RunUntilIdle(testsupport.Context()); err != nil {
		t.Fatalf("run loop: %v", err)
	}
}

func TestLoadInitializesForms(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/frag/", `
<form id="plain" action="/p/"></form>
<form id="shown" action="/s/" data-embed-mode="display"></form>
<form id="edited" action="/e/" data-embed-mode="edit"></form>`)
	doc, loop, rec := dom.New(), eventloop.New(), &recorder{}
	ld := loader.New(doc, loop, ft, rec)

	var done error = errors.New("not called")
	ld.Load(testsupport.Context(), "/frag/", doc.PageTarget(),
		loader.StartInEdit(true),
		loader.OnDone(func(_ context.Context, err error) { done = err }),
	)
	run(t, loop)

	if done != nil {
		t.Fatalf("unexpected completion error: %v", done)
	}
	want := []initCall{{ID: "plain", Edit: true}, {ID: "shown", Edit: false}, {ID: "edited", Edit: true}}
	if diff := cmp.Diff(want, rec.inits); diff != "" {
		t.Fatalf("initialize calls mismatch (-want +got):\n%s", diff)
	}
	if rec.binds != 1 {
		t.Fatalf("expected one trigger pass, got %d", rec.binds)
	}
	if len(doc.Page.Forms) != 3 {
		t.Fatalf("page should hold the fragment forms")
	}
}

func TestLoadFailureReplacesTarget(t *testing.T) {
	ft := testsupport.NewFakeTransport().Fail(http.MethodGet, "/frag/")
	doc, loop, rec := dom.New(), eventloop.New(), &recorder{}
	doc.ReplacePage(testsupport.MustParse(t, `<form action="/x/"></form>`))
	ld := loader.New(doc, loop, ft, rec)

	var done error
	ld.Load(testsupport.Context(), "/frag/", doc.PageTarget(),
		loader.OnDone(func(_ context.Context, err error) { done = err }),
	)
	run(t, loop)

	if doc.Page.Message != loader.ErrorMessage || len(doc.Page.Forms) != 0 {
		t.Fatalf("target should carry only the error message: %+v", doc.Page)
	}
	if !errors.Is(done, testsupport.ErrNetwork) {
		t.Fatalf("completion should report the cause, got %v", done)
	}
	if len(rec.inits) != 0 || rec.binds != 0 {
		t.Fatalf("failed loads initialize nothing")
	}
}

func TestSkipInitialize(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/frag/", `<form action="/x/"></form>`)
	doc, loop, rec := dom.New(), eventloop.New(), &recorder{}
	ld := loader.New(doc, loop, ft, rec)

	ld.Load(testsupport.Context(), "/frag/", doc.PageTarget(), loader.SkipInitialize())
	run(t, loop)
	if len(rec.inits) != 0 || rec.binds != 0 {
		t.Fatalf("initialization should be skipped")
	}
}

func TestGuardDropsResult(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/frag/", `<p>late</p>`)
	doc, loop, rec := dom.New(), eventloop.New(), &recorder{}
	ld := loader.New(doc, loop, ft, rec)

	var done error
	ld.Load(testsupport.Context(), "/frag/", doc.OverlayTarget(),
		loader.WithGuard(func() bool { return false }),
		loader.OnDone(func(_ context.Context, err error) { done = err }),
	)
	run(t, loop)

	if !errors.Is(done, loader.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", done)
	}
	if !doc.Overlay.Content.Empty() {
		t.Fatalf("guarded result must not be installed: %+v", doc.Overlay.Content)
	}
}

func TestListingRefresh(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/items/", `
<div class="formset" data-embed-url="/items/">
  <div data-embed-role="item">One</div>
  <div data-embed-role="item">Two</div>
  <a class="popup-trigger" data-embed-url="/items/2/edit/">Edit two</a>
</div>`)
	doc, loop, rec := dom.New(), eventloop.New(), &recorder{}
	doc.ReplacePage(testsupport.MustParse(t, `<div id="items" class="formset" data-embed-url="/items/"><div data-embed-role="item">One</div></div>`))
	reg := prometheus.NewRegistry()
	collector := metrics.NewWithRegistry(reg)
	ld := loader.New(doc, loop, ft, rec, loader.WithMetrics(collector))

	slot, ok := doc.FindListing("items")
	if !ok {
		t.Fatalf("listing not found")
	}
	refresher := ld.Listing(slot)
	if refresher.Slot() != slot {
		t.Fatalf("refresher should keep the slot reference")
	}
	old := slot.Handle
	refresher.Refresh(testsupport.Context())
	run(t, loop)

	if n := ft.Count(http.MethodGet, "/items/"); n != 1 {
		t.Fatalf("expected one listing read, got %d", n)
	}
	if slot.Handle == old {
		t.Fatalf("listing node should be replaced")
	}
	if diff := cmp.Diff([]string{"One", "Two"}, slot.Items); diff != "" {
		t.Fatalf("items mismatch (-want +got):\n%s", diff)
	}
	if len(slot.Triggers) != 1 || rec.binds != 1 {
		t.Fatalf("listing triggers should be bound after refresh")
	}
	if got := counterValue(t, reg, "embedform_listing_refreshes_total", "ok"); got != 1 {
		t.Fatalf("expected one successful refresh metric, got %v", got)
	}
}

func TestListingRefreshFailure(t *testing.T) {
	ft := testsupport.NewFakeTransport()
	doc, loop, rec := dom.New(), eventloop.New(), &recorder{}
	doc.ReplacePage(testsupport.MustParse(t, `<div class="formset" data-embed-url="/items/"><div data-embed-role="item">One</div></div>`))
	ld := loader.New(doc, loop, ft, rec)

	slot, _ := doc.FindListing("")
	ld.Listing(slot).Refresh(testsupport.Context())
	run(t, loop)
	if slot.Message != loader.ErrorMessage || len(slot.Items) != 0 {
		t.Fatalf("failed refresh should show the error message: %+v", slot)
	}
}

func TestListingRefreshNoop(t *testing.T) {
	ft := testsupport.NewFakeTransport()
	doc, loop := dom.New(), eventloop.New()
	ld := loader.New(doc, loop, ft, &recorder{})

	ld.Listing(nil).Refresh(testsupport.Context())
	ld.Listing(&dom.ListingSlot{ID: "bare"}).Refresh(testsupport.Context())
	run(t, loop)
	if len(ft.Requests()) != 0 {
		t.Fatalf("refreshes without an action url must not hit the transport")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
