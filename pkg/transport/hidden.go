package transport

import (
	"slices"
	"strings"
)

// HiddenField is a name/value pair added to submissions that do not already
// carry the name, such as a CSRF token or a tenant id.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a hidden field with a trimmed name.
func Hidden(name, value string) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: value}
}

// CSRFToken is the hidden field carrying token under the name the backend
// reads it from, for example "csrfmiddlewaretoken".
func CSRFToken(field, token string) HiddenField {
	return Hidden(field, token)
}

// HiddenFromMap converts configured fields into hidden fields ordered by
// name. Blank names are dropped.
func HiddenFromMap(fields map[string]string) []HiddenField {
	out := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		if f := Hidden(name, value); f.Name != "" {
			out = append(out, f)
		}
	}
	slices.SortFunc(out, func(a, b HiddenField) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// hiddenSet holds one value per name in insertion order.
type hiddenSet []HiddenField

// with returns a copy of s with fields applied. A name already present keeps
// its position and takes the new value.
func (s hiddenSet) with(fields ...HiddenField) hiddenSet {
	out := slices.Clone(s)
	for _, field := range fields {
		field = Hidden(field.Name, field.Value)
		if field.Name == "" {
			continue
		}
		i := slices.IndexFunc(out, func(h HiddenField) bool { return h.Name == field.Name })
		if i >= 0 {
			out[i] = field
			continue
		}
		out = append(out, field)
	}
	return out
}

// apply appends the fields p does not already carry. Values typed into the
// form win over configured ones.
func (s hiddenSet) apply(p Payload) Payload {
	if len(s) == 0 {
		return p
	}
	out := Payload{Fields: slices.Clone(p.Fields), Files: p.Files}
	for _, field := range s {
		if _, ok := p.Get(field.Name); ok {
			continue
		}
		out.Fields = append(out.Fields, Value{Name: field.Name, Value: field.Value})
	}
	return out
}
