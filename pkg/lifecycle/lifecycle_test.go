package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/lifecycle"
	"github.com/goliatone/go-embedform/pkg/testsupport"
)

const markup = `
<form id="a" action="/a/">
  <input type="hidden" name="token" value="t">
  <input name="title" value="Alpha">
  <input type="checkbox" name="flag" value="on" checked>
  <a class="edit-this-form">Edit</a>
</form>
<form id="b" action="/b/"><input name="title" value="Beta"></form>
<a class="popup-trigger" data-embed-url="/c/edit/">New</a>`

type fakes struct {
	opened    []string
	submitted []string
	closed    int
}

func (f *fakes) Open(_ context.Context, t *dom.Trigger) error {
	f.opened = append(f.opened, t.EmbedURL)
	return nil
}

func (f *fakes) Submit(_ context.Context, form *dom.FormNode) error {
	f.submitted = append(f.submitted, form.ID)
	return nil
}

func (f *fakes) Close(context.Context) { f.closed++ }

func setup(t *testing.T) (*dom.Document, *lifecycle.Controller, *fakes) {
	t.Helper()
	doc := dom.New()
	doc.ReplacePage(testsupport.MustParse(t, markup))
	c := lifecycle.New(doc)
	f := &fakes{}
	c.Wire(f, f, f)
	return doc, c, f
}

func TestEditDisplayRoundTrip(t *testing.T) {
	doc, c, _ := setup(t)
	form := doc.Page.Forms[0]

	if err := c.EnterEdit(form); err != nil {
		t.Fatalf("enter edit: %v", err)
	}
	for _, field := range form.Fields {
		if field.MirrorVisible {
			t.Fatalf("mirror of %s visible in edit mode", field.Name)
		}
		if field.InputVisible == field.Hidden() {
			t.Fatalf("input visibility of %s wrong in edit mode", field.Name)
		}
	}
	if form.EditTriggers()[0].Visible {
		t.Fatalf("edit trigger should be hidden in edit mode")
	}
	if !doc.Bound(form.Handle, dom.EventSubmit) {
		t.Fatalf("edit mode should bind submission")
	}

	form.Field("title").Value = "Changed"
	form.Field("flag").Checked = false
	if err := c.EnterDisplay(form); err != nil {
		t.Fatalf("enter display: %v", err)
	}

	got := map[string]string{}
	for _, field := range form.Fields {
		got[field.Name] = field.Mirror
		if field.InputVisible {
			t.Fatalf("input of %s visible in display mode", field.Name)
		}
	}
	want := map[string]string{"token": "t", "title": "Changed", "flag": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mirrors mismatch (-want +got):\n%s", diff)
	}
	if form.Field("token").MirrorVisible {
		t.Fatalf("hidden fields never show a mirror")
	}
	if form.Mode != dom.ModeDisplay || !form.EditTriggers()[0].Visible {
		t.Fatalf("display mode not restored")
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	doc, c, f := setup(t)
	ctx := testsupport.Context()
	form := doc.Page.Forms[0]

	if err := c.Initialize(ctx, form, true); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	count := doc.BindingCount()
	if err := c.Initialize(ctx, form, true); err != nil {
		t.Fatalf("initialize again: %v", err)
	}
	if doc.BindingCount() != count {
		t.Fatalf("binding count changed: %d -> %d", count, doc.BindingCount())
	}

	if err := doc.Dispatch(ctx, form.Handle, dom.EventSubmit); err != nil {
		t.Fatalf("dispatch submit: %v", err)
	}
	if diff := cmp.Diff([]string{"a"}, f.submitted); diff != "" {
		t.Fatalf("submissions mismatch (-want +got):\n%s", diff)
	}
}

func TestInitializeWiresOverlayDismissOnce(t *testing.T) {
	doc, c, f := setup(t)
	ctx := testsupport.Context()
	doc.ShowOverlay("")
	forms := doc.FillOverlay(testsupport.MustParse(t, `<form id="o" action="/o/"><input name="x"></form>`))

	if doc.Bound(doc.Overlay.Handle, dom.EventDismiss) {
		t.Fatalf("dismiss should not be bound before an overlay form initializes")
	}
	if err := c.Initialize(ctx, doc.Page.Forms[0], false); err != nil {
		t.Fatalf("initialize page form: %v", err)
	}
	if doc.Bound(doc.Overlay.Handle, dom.EventDismiss) {
		t.Fatalf("page forms must not wire the overlay")
	}
	if err := c.Initialize(ctx, forms[0], true); err != nil {
		t.Fatalf("initialize overlay form: %v", err)
	}
	if err := doc.Dispatch(ctx, doc.Overlay.Handle, dom.EventDismiss); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if f.closed != 1 {
		t.Fatalf("expected one close, got %d", f.closed)
	}
	if !c.EnclosingOverlay(forms[0]) || c.EnclosingOverlay(doc.Page.Forms[0]) {
		t.Fatalf("enclosing overlay misreported")
	}
}

func TestNearestForm(t *testing.T) {
	doc, c, _ := setup(t)
	first, second := doc.Page.Forms[0], doc.Page.Forms[1]
	edit := first.EditTriggers()[0]
	free := doc.Page.Triggers[0]

	for _, tc := range []struct {
		name   string
		handle dom.Handle
		want   *dom.FormNode
	}{
		{name: "zero handle", handle: 0, want: first},
		{name: "form handle", handle: second.Handle, want: second},
		{name: "owned trigger", handle: edit.Handle, want: first},
		{name: "page trigger", handle: free.Handle, want: first},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := c.NearestForm(tc.handle)
			if err != nil {
				t.Fatalf("nearest form: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected form %s, got %s", tc.want.ID, got.ID)
			}
		})
	}

	if _, err := c.NearestForm(dom.Handle(9999)); !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown handle, got %v", err)
	}

	empty := dom.New()
	if _, err := lifecycle.New(empty).NearestForm(0); !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on an empty page, got %v", err)
	}
}

func TestClickClassifiesTriggers(t *testing.T) {
	doc, c, f := setup(t)
	ctx := testsupport.Context()
	c.BindTriggers(ctx)
	form := doc.Page.Forms[0]
	if err := c.EnterDisplay(form); err != nil {
		t.Fatalf("display: %v", err)
	}

	if err := doc.Dispatch(ctx, doc.Page.Triggers[0].Handle, dom.EventClick); err != nil {
		t.Fatalf("click open trigger: %v", err)
	}
	if diff := cmp.Diff([]string{"/c/edit/"}, f.opened); diff != "" {
		t.Fatalf("opened mismatch (-want +got):\n%s", diff)
	}

	if err := doc.Dispatch(ctx, form.EditTriggers()[0].Handle, dom.EventClick); err != nil {
		t.Fatalf("click edit trigger: %v", err)
	}
	if form.Mode != dom.ModeEdit {
		t.Fatalf("edit trigger should switch to edit mode, got %s", form.Mode)
	}

	form.Mode = dom.ModeSubmitting
	if err := c.Click(ctx, form.EditTriggers()[0].Handle); err != nil {
		t.Fatalf("click while submitting: %v", err)
	}
	if form.Mode != dom.ModeSubmitting {
		t.Fatalf("edit trigger must not interrupt a submission")
	}
}

func TestUnwiredController(t *testing.T) {
	doc := dom.New()
	doc.ReplacePage(testsupport.MustParse(t, markup))
	c := lifecycle.New(doc)

	if err := c.Click(testsupport.Context(), doc.Page.Triggers[0].Handle); !errors.Is(err, lifecycle.ErrNotWired) {
		t.Fatalf("expected ErrNotWired, got %v", err)
	}
}

func TestStaleFormRejected(t *testing.T) {
	doc, c, _ := setup(t)
	old := doc.Page.Forms[0]
	doc.ReplacePage(testsupport.MustParse(t, markup))

	if err := c.EnterEdit(old); !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a released form, got %v", err)
	}
	if err := c.Initialize(testsupport.Context(), old, false); !errors.Is(err, dom.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from initialize, got %v", err)
	}
}
