package fragment

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	defaultSanitizerOnce sync.Once
	defaultSanitizer     *Sanitizer
)

// Sanitizer strips markup that has no business inside an embedded fragment
// (scripts, inline handlers, foreign elements) while keeping forms, controls
// and the data attributes the parser relies on.
type Sanitizer struct {
	policy *bluemonday.Policy
}

// DefaultSanitizer returns the shared fragment sanitizer.
func DefaultSanitizer() *Sanitizer {
	defaultSanitizerOnce.Do(func() {
		defaultSanitizer = &Sanitizer{policy: fragmentPolicy()}
	})
	return defaultSanitizer
}

// Sanitize returns the cleaned markup.
func (s *Sanitizer) Sanitize(markup string) string {
	if s == nil || s.policy == nil {
		return markup
	}
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	return s.policy.Sanitize(markup)
}

func fragmentPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataAttributes()
	policy.AllowElements(
		"form", "fieldset", "legend", "label", "input", "select", "option",
		"optgroup", "textarea", "button", "div", "span", "section", "header",
		"footer", "ul", "ol", "li", "table", "thead", "tbody", "tr", "td", "th",
	)
	policy.AllowAttrs("id", "class", "title", "hidden", "aria-label").Globally()
	policy.AllowAttrs("action", "method", "enctype").OnElements("form")
	policy.AllowAttrs("action").OnElements("div", "section", "ul", "ol", "table")
	policy.AllowAttrs(
		"name", "type", "value", "checked", "selected", "multiple",
		"placeholder", "disabled", "readonly", "required", "for",
	).OnElements("input", "select", "option", "textarea", "button", "label")
	policy.AllowRelativeURLs(true)
	return policy
}
