package submission

import (
	"github.com/goliatone/go-embedform/pkg/dom"
	"github.com/goliatone/go-embedform/pkg/transport"
)

// Serialize collects every named field of form, files included, in
// document order. Unchecked checkboxes and radio groups without a selection
// are omitted.
func Serialize(form *dom.FormNode) transport.Payload {
	var payload transport.Payload
	if form == nil {
		return payload
	}
	for _, field := range form.Fields {
		if field.Name == "" {
			continue
		}
		switch field.Type {
		case "checkbox":
			if field.Checked {
				payload.Fields = append(payload.Fields, transport.Value{Name: field.Name, Value: field.Value})
			}
		case "radio":
			if field.Value != "" {
				payload.Fields = append(payload.Fields, transport.Value{Name: field.Name, Value: field.Value})
			}
		case "file":
			for _, file := range field.Files {
				payload.Files = append(payload.Files, transport.FilePart{
					Field:       field.Name,
					Name:        file.Name,
					ContentType: file.ContentType,
					Data:        file.Data,
				})
			}
		default:
			payload.Fields = append(payload.Fields, transport.Value{Name: field.Name, Value: field.Value})
		}
	}
	return payload
}
