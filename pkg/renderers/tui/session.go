// Package tui drives an embedded-form page from the terminal: it prints the
// visible document and offers the user actions available on it.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-embedform/pkg/controller"
	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/fragment"
)

// Session is an interactive loop over one page.
type Session struct {
	page     *controller.Page
	driver   PromptDriver
	out      io.Writer
	theme    Theme
	readFile func(string) ([]byte, error)
	logger   zerolog.Logger
}

type action struct {
	label string
	run   func(ctx context.Context) error
}

// NewSession constructs a session with defaults (survey driver, stdout,
// colored theme).
func NewSession(page *controller.Page, options ...Option) *Session {
	s := &Session{
		page:     page,
		driver:   NewSurveyDriver(),
		out:      os.Stdout,
		theme:    DefaultTheme(),
		readFile: os.ReadFile,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// Run loads url and processes actions until the user quits.
func (s *Session) Run(ctx context.Context, url string) error {
	s.page.Load(ctx, url)
	if err := s.page.Settle(ctx); err != nil {
		return err
	}
	for {
		err := s.Step(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrQuit):
			return nil
		default:
			return err
		}
	}
}

// Step prints the document, asks for one action and applies it. Action
// failures are reported to the user; only quitting, aborting and context
// errors are returned.
func (s *Session) Step(ctx context.Context) error {
	if _, err := fmt.Fprint(s.out, Render(s.page.Document(), s.theme)); err != nil {
		return err
	}
	actions := s.actions()
	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = a.label
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: "Action", Options: labels, PageSize: 15})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(actions) {
		return s.driver.Info(ctx, s.theme.Error.Render("unknown action"))
	}

	if err := actions[idx].run(ctx); err != nil {
		if errors.Is(err, ErrQuit) || errors.Is(err, ErrAborted) || ctx.Err() != nil {
			return err
		}
		s.logger.Debug().Err(err).Str("action", actions[idx].label).Msg("action failed")
		if infoErr := s.driver.Info(ctx, s.theme.Error.Render(err.Error())); infoErr != nil {
			return infoErr
		}
	}
	return s.page.Settle(ctx)
}

func (s *Session) actions() []action {
	doc := s.page.Document()
	var out []action

	for _, t := range doc.Triggers() {
		if !t.Visible || (t.Container == dom.ContainerOverlay && !doc.Overlay.Visible) {
			continue
		}
		verb := "Open"
		if t.Action == fragment.TriggerEdit {
			verb = "Edit"
		}
		handle := t.Handle
		out = append(out, action{
			label: fmt.Sprintf("%s: %s", verb, TriggerLabel(t)),
			run: func(ctx context.Context) error {
				return s.page.Click(ctx, handle)
			},
		})
	}

	for _, form := range doc.Forms() {
		if form.Mode != dom.ModeEdit || (form.Container == dom.ContainerOverlay && !doc.Overlay.Visible) {
			continue
		}
		form := form
		out = append(out,
			action{
				label: "Change field in " + FormLabel(form),
				run: func(ctx context.Context) error {
					return s.editField(ctx, form)
				},
			},
			action{
				label: "Submit " + FormLabel(form),
				run: func(ctx context.Context) error {
					return s.page.Submit(ctx, form.Handle)
				},
			},
		)
	}

	if doc.Overlay.Visible {
		out = append(out, action{label: "Close overlay", run: s.page.Dismiss})
	}
	out = append(out,
		action{label: "Reload", run: func(ctx context.Context) error {
			s.page.Reload(ctx)
			return nil
		}},
		action{label: "Quit", run: func(context.Context) error { return ErrQuit }},
	)
	return out
}

func (s *Session) editField(ctx context.Context, form *dom.FormNode) error {
	var fields []*dom.Field
	var labels []string
	for _, field := range form.Fields {
		if field.Hidden() {
			continue
		}
		fields = append(fields, field)
		labels = append(labels, fieldLabel(field))
	}
	if len(fields) == 0 {
		return errors.New("tui: form has no editable fields")
	}
	idx, err := s.driver.Select(ctx, SelectConfig{Message: "Field", Options: labels})
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(fields) {
		return errors.New("tui: unknown field")
	}
	field := fields[idx]
	label := fieldLabel(field)

	switch field.Type {
	case "checkbox":
		checked, err := s.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: field.Checked})
		if err != nil {
			return err
		}
		return s.page.SetChecked(form.Handle, field.Name, checked)
	case "select", "radio":
		options := make([]string, len(field.Options))
		current := 0
		for i, opt := range field.Options {
			options[i] = opt.Label
			if opt.Value == field.Value {
				current = i
			}
		}
		choice, err := s.driver.Select(ctx, SelectConfig{Message: label, Options: options, DefaultIndex: current})
		if err != nil {
			return err
		}
		if choice < 0 || choice >= len(field.Options) {
			return errors.New("tui: unknown option")
		}
		return s.page.SetValue(form.Handle, field.Name, field.Options[choice].Value)
	case "file":
		path, err := s.driver.Input(ctx, InputConfig{Message: label + " (path)"})
		if err != nil {
			return err
		}
		data, err := s.readFile(path)
		if err != nil {
			return fmt.Errorf("tui: read attachment: %w", err)
		}
		return s.page.Attach(form.Handle, field.Name, dom.File{
			Name:        filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		})
	case "textarea":
		value, err := s.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: field.Value})
		if err != nil {
			return err
		}
		return s.page.SetValue(form.Handle, field.Name, value)
	default:
		value, err := s.driver.Input(ctx, InputConfig{Message: label, Default: field.Value})
		if err != nil {
			return err
		}
		return s.page.SetValue(form.Handle, field.Name, value)
	}
}
