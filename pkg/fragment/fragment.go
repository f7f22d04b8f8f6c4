package fragment

// TriggerAction classifies what activating a trigger does.
type TriggerAction string

const (
	// TriggerOpenOverlay loads the trigger's embed URL into the overlay.
	TriggerOpenOverlay TriggerAction = "open-overlay"
	// TriggerEdit switches the owning form to edit mode.
	TriggerEdit TriggerAction = "edit"
)

// Fragment is the typed result of parsing one server response.
type Fragment struct {
	Forms    []Form
	Listings []Listing
	// Triggers holds triggers that sit outside any form or listing.
	Triggers []Trigger
	// Text collects headings and paragraphs found outside forms.
	Text []string
	// Invalid reports whether any error marker was present.
	Invalid bool
}

// Form describes one object form.
type Form struct {
	ID      string
	Title   string
	Action  string
	Method  string
	Enctype string
	// Mode is the mode declared by the markup ("display", "edit" or empty).
	Mode      string
	Fields    []Field
	Triggers  []Trigger
	Errors    []string
	Invalid   bool
	HasSubmit bool
}

// Field describes one named control and its read-only mirror.
type Field struct {
	ID      string
	Name    string
	Label   string
	Type    string
	Value   string
	Checked bool
	Options []Option
	Errors  []string
	Mirror  string
}

// Option is a select option.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Trigger describes a clickable element with action metadata.
type Trigger struct {
	Action    TriggerAction
	Label     string
	EmbedURL  string
	DirectURL string
}

// Listing describes a collection container that can refresh itself from its
// own source URL.
type Listing struct {
	ID       string
	Action   string
	Items    []string
	Triggers []Trigger
}

// FirstForm returns the first form or nil.
func (f *Fragment) FirstForm() *Form {
	if f == nil || len(f.Forms) == 0 {
		return nil
	}
	return &f.Forms[0]
}

// FirstListing returns the first listing or nil.
func (f *Fragment) FirstListing() *Listing {
	if f == nil || len(f.Listings) == 0 {
		return nil
	}
	return &f.Listings[0]
}
