package tui_test

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-embedform/pkg/controller"
	"github.com/goliatone/go-embedform/pkg/renderers/tui"
	"github.com/goliatone/go-embedform/pkg/testsupport"
	"github.com/goliatone/go-embedform/pkg/transport"
)

const profilePage = `
<form id="profile" action="/profile/">
  <h2>Profile</h2>
  <input name="name" value="Grace">
  <a class="edit-this-form">Edit</a>
  <input type="submit" value="Save">
</form>
<div id="notes" class="formset" data-embed-url="/notes/">
  <div data-embed-role="item">First note</div>
</div>
<a class="popup-trigger" data-embed-url="/notes/new/">Add note</a>`

const noteForm = `
<form id="note" action="/notes/" enctype="multipart/form-data">
  <h2>Note</h2>
  <textarea name="body"></textarea>
  <input type="file" name="attachment">
  <input type="submit" value="Save">
</form>`

func TestSessionDrivesPageAndOverlay(t *testing.T) {
	ft := testsupport.NewFakeTransport().
		Page("/", profilePage).
		Accept("/profile/", `<form id="profile" action="/profile/"><h2>Profile</h2><input name="name" value="Ada"><a class="edit-this-form">Edit</a></form>`).
		Page("/notes/new/", noteForm).
		Accept("/notes/", `<p>Saved</p>`).
		Page("/notes/", `<div id="notes" class="formset" data-embed-url="/notes/"><div data-embed-role="item">First note</div><div data-embed-role="item">Hi</div></div>`)

	driver := testsupport.NewScriptedDriver().
		Choose(
			"Edit: Edit",
			"Change field in Profile", "name",
			"Submit Profile",
			"Open: Add note",
			"Change field in Note", "body",
			"Change field in Note", "attachment",
			"Change field in Note", "attachment",
			"Submit Note",
			"Quit",
		).
		Type("Ada", "missing.png", "notes/a.png").
		Write("Hi")

	files := map[string][]byte{"notes/a.png": []byte("attached")}
	var out bytes.Buffer
	page := controller.New(ft)
	session := tui.NewSession(page,
		tui.WithPromptDriver(driver),
		tui.WithOutput(&out),
		tui.WithTheme(tui.PlainTheme()),
		tui.WithFileReader(func(path string) ([]byte, error) {
			if data, ok := files[path]; ok {
				return data, nil
			}
			return nil, os.ErrNotExist
		}),
	)

	if err := session.Run(testsupport.Context(), "/"); err != nil {
		t.Fatalf("run: %v", err)
	}

	var profile, note *testsupport.Request
	requests := ft.Requests()
	for i := range requests {
		r := &requests[i]
		if r.Method != http.MethodPost {
			continue
		}
		switch r.URL {
		case "/profile/":
			profile = r
		case "/notes/":
			note = r
		}
	}
	if profile == nil || note == nil {
		t.Fatalf("expected both submissions, got %+v", requests)
	}
	if v, _ := profile.Payload.Get("name"); v != "Ada" {
		t.Fatalf("profile name = %q", v)
	}
	if v, _ := note.Payload.Get("body"); v != "Hi" {
		t.Fatalf("note body = %q", v)
	}
	wantFiles := []transport.FilePart{{Field: "attachment", Name: "a.png", ContentType: "image/png", Data: []byte("attached")}}
	if diff := cmp.Diff(wantFiles, note.Payload.Files); diff != "" {
		t.Fatalf("attachment mismatch (-want +got):\n%s", diff)
	}
	if n := ft.Count(http.MethodGet, "/notes/"); n != 1 {
		t.Fatalf("expected one listing refresh, got %d", n)
	}
	if page.Overlay().IsOpen() {
		t.Fatalf("overlay should be closed after the note was saved")
	}

	infos := driver.Infos()
	if len(infos) != 1 || !strings.Contains(infos[0], "read attachment") {
		t.Fatalf("expected the failed attachment to be reported, got %v", infos)
	}
	view := out.String()
	for _, want := range []string{"[Profile] (display)", "  - Hi", "== Overlay =="} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSessionOffersOverlayActionsOnlyWhenOpen(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/", profilePage).Page("/notes/new/", noteForm)
	driver := testsupport.NewScriptedDriver().Choose("Open: Add note", "Close overlay", "Quit")
	page := controller.New(ft)
	session := tui.NewSession(page, tui.WithPromptDriver(driver), tui.WithOutput(&bytes.Buffer{}), tui.WithTheme(tui.PlainTheme()))

	if err := session.Run(testsupport.Context(), "/"); err != nil {
		t.Fatalf("run: %v", err)
	}
	menus := driver.Menus()
	want := [][]string{
		{"Open: Add note", "Edit: Edit", "Reload", "Quit"},
		{"Open: Add note", "Edit: Edit", "Change field in Note", "Submit Note", "Close overlay", "Reload", "Quit"},
		{"Open: Add note", "Edit: Edit", "Reload", "Quit"},
	}
	if diff := cmp.Diff(want, menus); diff != "" {
		t.Fatalf("menus mismatch (-want +got):\n%s", diff)
	}
}

func TestSessionAbortsWhenScriptEnds(t *testing.T) {
	ft := testsupport.NewFakeTransport().Page("/", profilePage)
	page := controller.New(ft)
	session := tui.NewSession(page,
		tui.WithPromptDriver(testsupport.NewScriptedDriver()),
		tui.WithOutput(&bytes.Buffer{}),
		tui.WithTheme(tui.PlainTheme()),
	)
	if err := session.Run(testsupport.Context(), "/"); !errors.Is(err, tui.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}
