package testsupport

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-embedform/pkg/renderers/tui"
)

// ScriptedDriver answers prompts from a script. Select answers are matched
// by option label so scripts stay readable when menus change order.
type ScriptedDriver struct {
	mu       sync.Mutex
	selects  []string
	inputs   []string
	confirms []bool
	texts    []string
	infos    []string
	menus    [][]string
}

var _ tui.PromptDriver = (*ScriptedDriver)(nil)

// NewScriptedDriver returns an empty script.
func NewScriptedDriver() *ScriptedDriver {
	return &ScriptedDriver{}
}

// Choose queues select answers by label.
func (d *ScriptedDriver) Choose(labels ...string) *ScriptedDriver {
	d.selects = append(d.selects, labels...)
	return d
}

// Type queues input answers.
func (d *ScriptedDriver) Type(values ...string) *ScriptedDriver {
	d.inputs = append(d.inputs, values...)
	return d
}

// Confirmations queues confirm answers.
func (d *ScriptedDriver) Confirmations(values ...bool) *ScriptedDriver {
	d.confirms = append(d.confirms, values...)
	return d
}

// Write queues textarea answers.
func (d *ScriptedDriver) Write(values ...string) *ScriptedDriver {
	d.texts = append(d.texts, values...)
	return d
}

// Infos returns the messages shown to the user.
func (d *ScriptedDriver) Infos() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.infos...)
}

// Menus returns every option list offered to Select.
func (d *ScriptedDriver) Menus() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([][]string(nil), d.menus...)
}

func (d *ScriptedDriver) Input(_ context.Context, _ tui.InputConfig) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.inputs) == 0 {
		return "", fmt.Errorf("testsupport: no input scripted: %w", tui.ErrAborted)
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *ScriptedDriver) Confirm(_ context.Context, _ tui.ConfirmConfig) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.confirms) == 0 {
		return false, fmt.Errorf("testsupport: no confirm scripted: %w", tui.ErrAborted)
	}
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *ScriptedDriver) Select(_ context.Context, cfg tui.SelectConfig) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.menus = append(d.menus, append([]string(nil), cfg.Options...))
	if len(d.selects) == 0 {
		return -1, fmt.Errorf("testsupport: no select scripted: %w", tui.ErrAborted)
	}
	want := d.selects[0]
	d.selects = d.selects[1:]
	for i, opt := range cfg.Options {
		if opt == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("testsupport: option %q not offered in %v: %w", want, cfg.Options, tui.ErrAborted)
}

func (d *ScriptedDriver) TextArea(_ context.Context, _ tui.TextAreaConfig) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.texts) == 0 {
		return "", fmt.Errorf("testsupport: no textarea scripted: %w", tui.ErrAborted)
	}
	v := d.texts[0]
	d.texts = d.texts[1:]
	return v, nil
}

func (d *ScriptedDriver) Info(_ context.Context, msg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.infos = append(d.infos, msg)
	return nil
}
