package fragment

import "strings"

// Roles recognised in the role attribute.
const (
	RoleForm           = "form"
	RoleListing        = "listing"
	RoleItem           = "item"
	RoleOverlayTrigger = "overlay-trigger"
	RoleEditTrigger    = "edit-trigger"
)

// Markers names the attributes and classes the parser looks for. The explicit
// role attribute is preferred; the legacy classes keep older markup working.
type Markers struct {
	RoleAttr            string `yaml:"role_attr"`
	OverlayTriggerClass string `yaml:"overlay_trigger_class"`
	EditTriggerClass    string `yaml:"edit_trigger_class"`
	ListingClass        string `yaml:"listing_class"`
	EmbedURLAttr        string `yaml:"embed_url_attr"`
	DirectURLAttr       string `yaml:"direct_url_attr"`
	ModeAttr            string `yaml:"mode_attr"`
	MirrorAttr          string `yaml:"mirror_attr"`
	FieldErrorAttr      string `yaml:"field_error_attr"`
	ErrorClass          string `yaml:"error_class"`
}

// DefaultMarkers returns the marker set used when nothing is configured.
func DefaultMarkers() Markers {
	return Markers{
		RoleAttr:            "data-embed-role",
		OverlayTriggerClass: "popup-trigger",
		EditTriggerClass:    "edit-this-form",
		ListingClass:        "formset",
		EmbedURLAttr:        "data-embed-url",
		DirectURLAttr:       "data-url",
		ModeAttr:            "data-embed-mode",
		MirrorAttr:          "data-embed-mirror",
		FieldErrorAttr:      "data-embed-error-for",
		ErrorClass:          "form-errors",
	}
}

// WithDefaults fills every blank marker from DefaultMarkers.
func (m Markers) WithDefaults() Markers {
	def := DefaultMarkers()
	fill := func(dst *string, fallback string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = fallback
		}
	}
	fill(&m.RoleAttr, def.RoleAttr)
	fill(&m.OverlayTriggerClass, def.OverlayTriggerClass)
	fill(&m.EditTriggerClass, def.EditTriggerClass)
	fill(&m.ListingClass, def.ListingClass)
	fill(&m.EmbedURLAttr, def.EmbedURLAttr)
	fill(&m.DirectURLAttr, def.DirectURLAttr)
	fill(&m.ModeAttr, def.ModeAttr)
	fill(&m.MirrorAttr, def.MirrorAttr)
	fill(&m.FieldErrorAttr, def.FieldErrorAttr)
	fill(&m.ErrorClass, def.ErrorClass)
	return m
}
