package sample

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed schema.yaml
var schemaDocument []byte

// ErrorMapping splits validation messages into field-level and form-level
// groups.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// Empty reports whether no message was recorded.
func (m ErrorMapping) Empty() bool {
	return len(m.Fields) == 0 && len(m.Form) == 0
}

// Validator checks submitted values against the component schemas of an
// OpenAPI document.
type Validator struct {
	schemas map[string]*openapi3.Schema
}

// NewValidator loads doc, or the embedded sample document when doc is empty.
func NewValidator(ctx context.Context, doc []byte) (*Validator, error) {
	if len(doc) == 0 {
		doc = schemaDocument
	}
	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(doc)
	if err != nil {
		return nil, fmt.Errorf("sample: load schema: %w", err)
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, fmt.Errorf("sample: invalid schema: %w", err)
	}

	v := &Validator{schemas: make(map[string]*openapi3.Schema)}
	if spec.Components != nil {
		for name, ref := range spec.Components.Schemas {
			if ref != nil && ref.Value != nil {
				v.schemas[name] = ref.Value
			}
		}
	}
	return v, nil
}

// Validate checks values against the named schema and maps every failure
// onto the schema's properties. Failures that do not point at a known
// property become form-level messages.
func (v *Validator) Validate(name string, values map[string]any) (ErrorMapping, error) {
	schema, ok := v.schemas[name]
	if !ok {
		return ErrorMapping{}, fmt.Errorf("%w: %q", ErrUnknownSchema, name)
	}

	err := schema.VisitJSON(values, openapi3.MultiErrors())
	if err == nil {
		return ErrorMapping{}, nil
	}

	payload := make(map[string][]string)
	for _, e := range flatten(err) {
		var schemaErr *openapi3.SchemaError
		if !errors.As(e, &schemaErr) {
			payload[""] = append(payload[""], e.Error())
			continue
		}
		path := "/" + strings.Join(schemaErr.JSONPointer(), "/")
		payload[path] = append(payload[path], describe(schemaErr))
	}

	fields := make([]string, 0, len(schema.Properties))
	for prop := range schema.Properties {
		fields = append(fields, prop)
	}
	return mapErrorPayload(fields, payload), nil
}

func flatten(err error) []error {
	var multi openapi3.MultiError
	if !errors.As(err, &multi) {
		return []error{err}
	}
	var out []error
	for _, e := range multi {
		out = append(out, flatten(e)...)
	}
	return out
}

func describe(err *openapi3.SchemaError) string {
	switch err.SchemaField {
	case "required":
		return "This field is required."
	case "minLength":
		if s, ok := err.Value.(string); ok && strings.TrimSpace(s) == "" {
			return "This field is required."
		}
		if err.Schema != nil {
			return fmt.Sprintf("Ensure this value has at least %d characters.", err.Schema.MinLength)
		}
	case "maxLength":
		if err.Schema != nil && err.Schema.MaxLength != nil {
			return fmt.Sprintf("Ensure this value has at most %d characters.", *err.Schema.MaxLength)
		}
	}
	return err.Reason
}

// mapErrorPayload normalises JSON pointer style paths onto the known field
// names. Unknown paths are treated as form-level errors so messages are not
// lost.
func mapErrorPayload(fields []string, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{Fields: make(map[string][]string)}
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}

	paths := make([]string, 0, len(payload))
	for path := range payload {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		messages := normalizeMessages(payload[path])
		if len(messages) == 0 {
			continue
		}
		segments := dropWrapperSegments(parsePathSegments(path))
		if len(segments) == 0 {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if _, ok := known[segments[0]]; !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[segments[0]] = append(mapping.Fields[segments[0]], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parsePathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimPrefix(clean, "#/")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)
	clean = strings.Trim(clean, "./#$")
	if clean == "" {
		return nil
	}
	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

func dropWrapperSegments(segments []string) []string {
	wrappers := map[string]struct{}{
		"request": {},
		"payload": {},
		"data":    {},
	}
	for len(segments) > 1 {
		if _, ok := wrappers[strings.ToLower(segments[0])]; !ok {
			break
		}
		segments = segments[1:]
	}
	return segments
}
