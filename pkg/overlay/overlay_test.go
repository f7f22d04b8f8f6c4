package overlay_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/eventloop"
	"github.com/goliatone/go-embedform/pkg/lifecycle"
	"github.com/goliatone/go-embedform/pkg/loader"
	"github.com/goliatone/go-embedform/pkg/overlay"
	"github.com/goliatone/go-embedform/pkg/testsupport"
)

type harness struct {
	doc       *dom.Document
	loop      *eventloop.Loop
	manager   *overlay.Manager
	navigated []string
}

func newHarness(ft *testsupport.FakeTransport, options ...overlay.Option) *harness {
	h := &harness{doc: dom.New(), loop: eventloop.New()}
	lc := lifecycle.New(h.doc)
	ld := loader.New(h.doc, h.loop, ft, lc)
	nav := overlay.NavigatorFunc(func(_ context.Context, url string) error {
		h.navigated = append(h.navigated, url)
		return nil
	})
	h.manager = overlay.New(h.doc, ld, append([]overlay.Option{overlay.WithNavigator(nav)}, options...)...)
	lc.Wire(h.manager, nil, h.manager)
	return h
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	if err := h.loop.RunUntilIdle(testsupport.Context()); err != nil {
		t.Fatalf("run loop: %v", err)
	}
}

func pageTrigger(t *testing.T, h *harness, markup string) *dom.Trigger {
	t.Helper()
	h.doc.ReplacePage(testsupport.MustParse(t, markup))
	return h.doc.Page.Triggers[0]
}

func TestOpenShowsPlaceholderBeforeLoading(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/obj/1/edit/", `<form id="o" action="/obj/1/"><input name="t" value="v"></form>`)
	h := newHarness(ft)
	trigger := pageTrigger(t, h, `<a class="popup-trigger" data-embed-url="/obj/1/edit/">Edit</a>`)

	release := ft.Hold(http.MethodGet, "/obj/1/edit/")
	if err := h.manager.Open(testsupport.Context(), trigger); err != nil {
		t.Fatalf("open: %v", err)
	}
	o := h.doc.Overlay
	if !h.manager.IsOpen() || !o.Loading || o.Content.Message != overlay.LoadingPlaceholder {
		t.Fatalf("placeholder should be visible while loading: %+v", o)
	}
	release()
	h.settle(t)

	if o.Loading || o.Content.Message != "" || len(o.Content.Forms) != 1 {
		t.Fatalf("overlay should be populated: %+v", o.Content)
	}
	if form := o.Content.Forms[0]; form.Mode != dom.ModeEdit || form.Container != dom.ContainerOverlay {
		t.Fatalf("overlay forms default to edit mode: %s %s", form.Mode, form.Container)
	}
}

func TestOpenRespectsDeclaredMode(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/obj/1/", `<form action="/obj/1/" data-embed-mode="display"><input name="t"></form>`)
	h := newHarness(ft)
	trigger := pageTrigger(t, h, `<a class="popup-trigger" data-embed-url="/obj/1/">View</a>`)

	if err := h.manager.Open(testsupport.Context(), trigger); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.settle(t)
	if form := h.doc.Overlay.Content.Forms[0]; form.Mode != dom.ModeDisplay {
		t.Fatalf("declared display mode should win, got %s", form.Mode)
	}
}

func TestCustomPlaceholder(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/x/", `<p>x</p>`)
	h := newHarness(ft, overlay.WithPlaceholder("Please wait"))
	trigger := pageTrigger(t, h, `<a class="popup-trigger" data-embed-url="/x/">X</a>`)

	if err := h.manager.Open(testsupport.Context(), trigger); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := h.doc.Overlay.Content.Message; got != "Please wait" {
		t.Fatalf("unexpected placeholder %q", got)
	}
	h.settle(t)
}

func TestTriggerInOverlayNavigates(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/obj/1/edit/", `
<form action="/obj/1/">
  <a class="popup-trigger" data-embed-url="/obj/1/related/" data-url="/obj/1/related/full/">Related</a>
  <a class="popup-trigger" data-embed-url="/obj/1/other/">Other</a>
</form>`)
	h := newHarness(ft)
	trigger := pageTrigger(t, h, `<a class="popup-trigger" data-embed-url="/obj/1/edit/">Edit</a>`)
	ctx := testsupport.Context()

	if err := h.manager.Open(ctx, trigger); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.settle(t)
	generation := h.doc.Overlay.Generation()

	for _, nested := range h.doc.Overlay.Content.Forms[0].Triggers {
		if nested.Container != dom.ContainerOverlay {
			t.Fatalf("nested trigger should be stamped with the overlay container")
		}
		if err := h.manager.Open(ctx, nested); err != nil {
			t.Fatalf("open nested: %v", err)
		}
	}
	h.settle(t)

	if diff := cmp.Diff([]string{"/obj/1/related/full/", "/obj/1/other/"}, h.navigated); diff != "" {
		t.Fatalf("navigation mismatch (-want +got):\n%s", diff)
	}
	if h.doc.Overlay.Generation() != generation {
		t.Fatalf("nested triggers must not reopen the overlay")
	}
}

func TestSupersededLoadDropped(t *testing.T) {
	ft := testsupport.NewFakeTransport().
		Page("/slow/", `<form id="slow" action="/slow/"></form>`).
		Page("/fast/", `<form id="fast" action="/fast/"></form>`)
	h := newHarness(ft)
	h.doc.ReplacePage(testsupport.MustParse(t, `
<a class="popup-trigger" data-embed-url="/slow/">Slow</a>
<a class="popup-trigger" data-embed-url="/fast/">Fast</a>`))
	slow, fast := h.doc.Page.Triggers[0], h.doc.Page.Triggers[1]
	ctx := testsupport.Context()

	release := ft.Hold(http.MethodGet, "/slow/")
	if err := h.manager.Open(ctx, slow); err != nil {
		t.Fatalf("open slow: %v", err)
	}
	if err := h.manager.Open(ctx, fast); err != nil {
		t.Fatalf("open fast: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	go func() {
		<-time.After(100 * time.Millisecond)
		cancel()
	}()
	if err := h.loop.RunUntilIdle(runCtx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the held load to keep the loop busy, got %v", err)
	}
	release()
	h.settle(t)

	forms := h.doc.Overlay.Content.Forms
	if len(forms) != 1 || forms[0].ID != "fast" {
		t.Fatalf("stale load should be dropped, got %+v", forms)
	}
}

func TestLoadFailureShowsMessage(t *testing.T) {
	h := newHarness(testsupport.NewFakeTransport())
	trigger := pageTrigger(t, h, `<a class="popup-trigger" data-embed-url="/missing/">Missing</a>`)

	if err := h.manager.Open(testsupport.Context(), trigger); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.settle(t)
	if got := h.doc.Overlay.Content.Message; got != loader.ErrorMessage {
		t.Fatalf("unexpected overlay message %q", got)
	}
	if !h.manager.IsOpen() {
		t.Fatalf("overlay stays visible with the error message")
	}
}

func TestCloseKeepsContent(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/x/", `<p>Body</p>`)
	h := newHarness(ft)
	trigger := pageTrigger(t, h, `<a class="popup-trigger" data-embed-url="/x/">X</a>`)
	if err := h.manager.Open(testsupport.Context(), trigger); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.settle(t)

	h.manager.Close(testsupport.Context())
	if h.manager.IsOpen() {
		t.Fatalf("overlay should be hidden")
	}
	if diff := cmp.Diff([]string{"Body"}, h.doc.Overlay.Content.Text); diff != "" {
		t.Fatalf("content should stay in place (-want +got):\n%s", diff)
	}
}

func TestOpenErrors(t *testing.T) {
	h := newHarness(testsupport.NewFakeTransport())
	ctx := testsupport.Context()
	if err := h.manager.Open(ctx, nil); !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	trigger := pageTrigger(t, h, `<a class="popup-trigger">No url</a>`)
	if err := h.manager.Open(ctx, trigger); !errors.Is(err, overlay.ErrNoEmbedURL) {
		t.Fatalf("expected ErrNoEmbedURL, got %v", err)
	}

	bare := overlay.New(h.doc, nil)
	nested := &dom.Trigger{Container: dom.ContainerOverlay, DirectURL: "/x/"}
	if err := bare.Open(ctx, nested); !errors.Is(err, overlay.ErrNoNavigator) {
		t.Fatalf("expected ErrNoNavigator, got %v", err)
	}
}
