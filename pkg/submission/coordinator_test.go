package submission_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/eventloop"
	"github.com/goliatone/go-embedform/pkg/loader"
	"github.com/goliatone/go-embedform/pkg/submission"
	"github.com/goliatone/go-embedform/pkg/testsupport"
	"github.com/goliatone/go-embedform/pkg/transport"
)

const editForm = `<form id="obj" action="/obj/5/"><input name="title" value="Five"><input type="submit"></form>`

type initCall struct {
	ID        string
	Container dom.ContainerKind
	Edit      bool
}

type recorder struct {
	inits     []initCall
	closes    int
	refreshes int
}

func (r *recorder) Initialize(_ context.Context, form *dom.FormNode, startInEdit bool) error {
	r.inits = append(r.inits, initCall{ID: form.ID, Container: form.Container, Edit: startInEdit})
	form.Mode = dom.ModeDisplay
	if startInEdit {
		form.Mode = dom.ModeEdit
	}
	return nil
}

func (r *recorder) Close(context.Context) { r.closes++ }

func (r *recorder) Refresh(context.Context) { r.refreshes++ }

type harness struct {
	doc  *dom.Document
	loop *eventloop.Loop
	ft   *testsupport.FakeTransport
	rec  *recorder
	c    *submission.Coordinator
}

func newHarness(ft *testsupport.FakeTransport) *harness {
	h := &harness{doc: dom.New(), loop: eventloop.New(), ft: ft, rec: &recorder{}}
	h.c = submission.New(h.doc, h.loop, ft, h.rec, h.rec, submission.WithListing(h.rec))
	return h
}

func (h *harness) pageForm(t *testing.T, markup string) *dom.FormNode {
	t.Helper()
	forms := h.doc.ReplacePage(testsupport.MustParse(t, markup))
	forms[0].Mode = dom.ModeEdit
	return forms[0]
}

func (h *harness) overlayForm(t *testing.T, markup string) *dom.FormNode {
	t.Helper()
	h.doc.ShowOverlay("")
	forms := h.doc.FillOverlay(testsupport.MustParse(t, markup))
	forms[0].Mode = dom.ModeEdit
	return forms[0]
}

func (h *harness) settle(t *testing.T) {
	t.Helper()
	if err := h.loop.RunUntilIdle(testsupport.Context()); err != nil {
		t.Fatalf("run loop: %v", err)
	}
}

func TestValidationFailureReplacesInEditMode(t *testing.T) {
	for _, tc := range []struct {
		name    string
		overlay bool
	}{
		{name: "page"},
		{name: "overlay", overlay: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ft := testsupport.NewFakeTransport().Reject("/obj/5/", `<form id="obj" action="/obj/5/"><ul class="form-errors"><li>Bad</li></ul><input name="title"></form>`)
			h := newHarness(ft)
			var form *dom.FormNode
			if tc.overlay {
				form = h.overlayForm(t, editForm)
			} else {
				form = h.pageForm(t, editForm)
			}
			if err := h.c.Submit(testsupport.Context(), form); err != nil {
				t.Fatalf("submit: %v", err)
			}
			h.settle(t)

			want := []initCall{{ID: "obj", Container: form.Container, Edit: true}}
			if diff := cmp.Diff(want, h.rec.inits); diff != "" {
				t.Fatalf("initialize calls mismatch (-want +got):\n%s", diff)
			}
			if h.rec.closes != 0 || h.rec.refreshes != 0 {
				t.Fatalf("validation failure closed overlay %d times, refreshed listing %d times", h.rec.closes, h.rec.refreshes)
			}
			if _, ok := h.doc.Form(form.Handle); ok {
				t.Fatalf("old form should be released")
			}
		})
	}
}

func TestValidationFailureWithoutFormKeepsNode(t *testing.T) {
	ft := testsupport.NewFakeTransport().Reject("/obj/5/", `<p>Unprocessable entity</p>`)
	h := newHarness(ft)
	form := h.overlayForm(t, editForm)
	form.Field("title").Value = "Typed"

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)

	current, ok := h.doc.Form(form.Handle)
	if !ok || current != form {
		t.Fatalf("form without a replacement should stay in place")
	}
	if form.Mode != dom.ModeEdit || form.Notice != loader.ErrorMessage {
		t.Fatalf("unexpected form state: notice=%q mode=%s", form.Notice, form.Mode)
	}
	if form.Field("title").Value != "Typed" {
		t.Fatalf("field values should be preserved")
	}
	if len(h.rec.inits) != 0 || h.rec.closes != 0 || h.rec.refreshes != 0 {
		t.Fatalf("formless validation response should have no side effects: %+v", h.rec)
	}
}

func TestHeaderSignalledValidationFailure(t *testing.T) {
	ft := testsupport.NewFakeTransport()
	h := newHarness(ft)
	client := outcomeClient{body: editForm}
	h.c = submission.New(h.doc, h.loop, client, h.rec, h.rec, submission.WithListing(h.rec))
	form := h.overlayForm(t, editForm)

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)
	if h.rec.closes != 0 || len(h.rec.inits) != 1 || !h.rec.inits[0].Edit {
		t.Fatalf("header outcome should be treated as validation failure: %+v", h.rec)
	}
}

type outcomeClient struct {
	body string
}

func (c outcomeClient) Fetch(context.Context, string) (*transport.Response, error) {
	return nil, errors.New("not used")
}

func (c outcomeClient) Submit(_ context.Context, _ string, url string, _ transport.Payload) (*transport.Response, error) {
	header := http.Header{}
	header.Set(transport.HeaderOutcome, transport.OutcomeInvalidValue)
	status := http.StatusOK
	outcome, _ := transport.Classify(status, header, nil, "")
	return &transport.Response{URL: url, Status: status, Outcome: outcome, Header: header, Body: []byte(c.body)}, nil
}

func TestOverlaySuccessClosesAndRefreshesOnce(t *testing.T) {
	ft := testsupport.NewFakeTransport().Accept("/obj/5/", `<p>Saved</p>`)
	h := newHarness(ft)
	form := h.overlayForm(t, editForm)

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)

	if h.rec.closes != 1 || h.rec.refreshes != 1 {
		t.Fatalf("expected one close and one refresh, got %d and %d", h.rec.closes, h.rec.refreshes)
	}
	if form.Mode != dom.ModeRemoved || len(h.doc.Overlay.Content.Forms) != 0 {
		t.Fatalf("overlay form should be removed, mode %s", form.Mode)
	}
	if len(h.rec.inits) != 0 {
		t.Fatalf("no re-initialization expected, got %+v", h.rec.inits)
	}
}

func TestPageSuccessReturnsToDisplay(t *testing.T) {
	ft := testsupport.NewFakeTransport().Accept("/obj/5/", `<form id="obj" action="/obj/5/"><input name="title" value="Saved"></form>`)
	h := newHarness(ft)
	form := h.pageForm(t, editForm)

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)

	want := []initCall{{ID: "obj", Container: dom.ContainerPage, Edit: false}}
	if diff := cmp.Diff(want, h.rec.inits); diff != "" {
		t.Fatalf("initialize calls mismatch (-want +got):\n%s", diff)
	}
	if h.rec.refreshes != 0 || h.rec.closes != 0 {
		t.Fatalf("page success must not touch overlay or listing")
	}
	current, _ := h.doc.PageForm()
	if current.Field("title").Value != "Saved" {
		t.Fatalf("form not replaced: %+v", current.Field("title"))
	}
}

func TestTransportFailureKeepsEditMode(t *testing.T) {
	ft := testsupport.NewFakeTransport().Fail(http.MethodPost, "/obj/5/")
	h := newHarness(ft)
	form := h.pageForm(t, editForm)
	form.Field("title").Value = "Typed"

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)

	if form.Notice != loader.ErrorMessage || form.Mode != dom.ModeEdit {
		t.Fatalf("unexpected form state: notice=%q mode=%s", form.Notice, form.Mode)
	}
	if form.Field("title").Value != "Typed" {
		t.Fatalf("field values should be preserved")
	}
	if len(h.rec.inits) != 0 || h.rec.closes != 0 || h.rec.refreshes != 0 {
		t.Fatalf("transport failure should have no side effects: %+v", h.rec)
	}
}

func TestStatusFailureIsTransportFailure(t *testing.T) {
	h := newHarness(testsupport.NewFakeTransport())
	form := h.pageForm(t, editForm)

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)
	if form.Notice != loader.ErrorMessage {
		t.Fatalf("unscripted route should fail, notice %q", form.Notice)
	}
}

func TestSubmitPreconditions(t *testing.T) {
	ft := testsupport.NewFakeTransport().Accept("/obj/5/", editForm)
	h := newHarness(ft)
	form := h.pageForm(t, editForm)
	ctx := testsupport.Context()

	form.Mode = dom.ModeDisplay
	if err := h.c.Submit(ctx, form); !errors.Is(err, submission.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}

	form.Mode = dom.ModeEdit
	release := ft.Hold(http.MethodPost, "/obj/5/")
	if err := h.c.Submit(ctx, form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := h.c.Submit(ctx, form); !errors.Is(err, submission.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	release()
	h.settle(t)
	if n := ft.Count(http.MethodPost, "/obj/5/"); n != 1 {
		t.Fatalf("expected one request, got %d", n)
	}

	if err := h.c.Submit(ctx, form); !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a replaced form, got %v", err)
	}
}

func TestWithoutListingRefresher(t *testing.T) {
	ft := testsupport.NewFakeTransport().Accept("/obj/5/", `<p>Saved</p>`)
	h := newHarness(ft)
	h.c.SetListing(nil)
	form := h.overlayForm(t, editForm)

	if err := h.c.Submit(testsupport.Context(), form); err != nil {
		t.Fatalf("submit: %v", err)
	}
	h.settle(t)
	if h.rec.closes != 1 || h.rec.refreshes != 0 {
		t.Fatalf("expected close without refresh, got %+v", h.rec)
	}
}
