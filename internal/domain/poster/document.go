package poster

// PreviewStatus is the server-side state of the raster preview job.
type PreviewStatus string

const (
	PreviewPending    PreviewStatus = "pending"
	PreviewGenerating PreviewStatus = "generating"
	PreviewCompleted  PreviewStatus = "completed"
	PreviewFailed     PreviewStatus = "failed"
)

// Unsettled reports whether the preview job may still change on the server.
func (s PreviewStatus) Unsettled() bool {
	return s == PreviewPending || s == PreviewGenerating
}

// Section is one ordered block of poster content.
type Section struct {
	SectionID string   `json:"section_id"`
	Title     string   `json:"section_title"`
	Content   string   `json:"section_content"`
	ImageURLs []string `json:"image_urls"`
}

// Document is the server-authoritative poster content.
// It is replaced wholesale on every server response and never patched.
type Document struct {
	PosterID         string          `json:"poster_id,omitempty"`
	Title            string          `json:"title"`
	Abstract         *string         `json:"abstract,omitempty"`
	Conclusion       *string         `json:"conclusion,omitempty"`
	Sections         []Section       `json:"sections"`
	SelectedTheme    string          `json:"selected_theme"`
	StyleOverrides   *StyleOverrides `json:"style_overrides,omitempty"`
	PreviewStatus    PreviewStatus   `json:"preview_status"`
	PreviewLastError *string         `json:"preview_last_error,omitempty"`
}

// Section returns the section with the given id.
func (d *Document) Section(sectionID string) (Section, bool) {
	if d == nil {
		return Section{}, false
	}
	for _, s := range d.Sections {
		if s.SectionID == sectionID {
			return s, true
		}
	}
	return Section{}, false
}

// Overrides returns the document's style overrides, never nil.
func (d *Document) Overrides() StyleOverrides {
	if d == nil || d.StyleOverrides == nil {
		return StyleOverrides{}
	}
	return d.StyleOverrides.Clone()
}

// Clone returns a deep copy so callers cannot mutate a shared document.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Abstract = cloneString(d.Abstract)
	out.Conclusion = cloneString(d.Conclusion)
	out.PreviewLastError = cloneString(d.PreviewLastError)
	if d.Sections != nil {
		out.Sections = make([]Section, len(d.Sections))
		for i, s := range d.Sections {
			if s.ImageURLs != nil {
				s.ImageURLs = append(make([]string, 0, len(s.ImageURLs)), s.ImageURLs...)
			}
			out.Sections[i] = s
		}
	}
	if d.StyleOverrides != nil {
		so := d.StyleOverrides.Clone()
		out.StyleOverrides = &so
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StringPtr is a convenience for optional text fields.
func StringPtr(s string) *string {
	return &s
}
