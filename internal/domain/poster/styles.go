package poster

import "fmt"

// StyleTarget names an overridable poster element.
type StyleTarget string

const (
	StyleTitle          StyleTarget = "title"
	StyleAbstract       StyleTarget = "abstract"
	StyleConclusion     StyleTarget = "conclusion"
	StyleSectionTitle   StyleTarget = "section_title"
	StyleSectionContent StyleTarget = "section_content"
)

// StyleTargets lists the element targets in display order.
var StyleTargets = []StyleTarget{
	StyleTitle,
	StyleAbstract,
	StyleConclusion,
	StyleSectionTitle,
	StyleSectionContent,
}

// BackgroundTarget addresses StyleOverrides.SlideBackground in style
// edits. It is not an element target.
const BackgroundTarget = "slide_background"

// StyleProperty names a field of ElementStyle.
type StyleProperty string

const (
	PropFontSize   StyleProperty = "font_size"
	PropColor      StyleProperty = "color"
	PropFontFamily StyleProperty = "font_family"
)

// ParseStyleTarget validates an element target key.
func ParseStyleTarget(s string) (StyleTarget, error) {
	for _, t := range StyleTargets {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown style target %q", s)
}

// ParseStyleProperty validates a property key.
func ParseStyleProperty(s string) (StyleProperty, error) {
	switch StyleProperty(s) {
	case PropFontSize, PropColor, PropFontFamily:
		return StyleProperty(s), nil
	}
	return "", fmt.Errorf("unknown style property %q", s)
}

// ElementStyle is a partial set of style properties. Nil means inherit.
type ElementStyle struct {
	FontSize   *int    `json:"font_size,omitempty"`
	Color      *string `json:"color,omitempty"`
	FontFamily *string `json:"font_family,omitempty"`
}

// Empty reports whether no property is set.
func (e *ElementStyle) Empty() bool {
	return e == nil || (e.FontSize == nil && e.Color == nil && e.FontFamily == nil)
}

// Clone returns a deep copy.
func (e *ElementStyle) Clone() *ElementStyle {
	if e == nil {
		return nil
	}
	out := &ElementStyle{Color: cloneString(e.Color), FontFamily: cloneString(e.FontFamily)}
	if e.FontSize != nil {
		v := *e.FontSize
		out.FontSize = &v
	}
	return out
}

// StyleOverrides is a sparse map of element targets to partial styles.
// A nil entry means the element inherits everything from the theme.
type StyleOverrides struct {
	Title           *ElementStyle `json:"title,omitempty"`
	Abstract        *ElementStyle `json:"abstract,omitempty"`
	Conclusion      *ElementStyle `json:"conclusion,omitempty"`
	SectionTitle    *ElementStyle `json:"section_title,omitempty"`
	SectionContent  *ElementStyle `json:"section_content,omitempty"`
	SlideBackground *string       `json:"slide_background,omitempty"`
}

// Element returns the style for target, or nil.
func (o *StyleOverrides) Element(t StyleTarget) *ElementStyle {
	if o == nil {
		return nil
	}
	return *o.slot(t)
}

// SetElement replaces the style for target. Empty styles are stored as nil.
func (o *StyleOverrides) SetElement(t StyleTarget, e *ElementStyle) {
	if e.Empty() {
		e = nil
	}
	*o.slot(t) = e
}

func (o *StyleOverrides) slot(t StyleTarget) **ElementStyle {
	switch t {
	case StyleTitle:
		return &o.Title
	case StyleAbstract:
		return &o.Abstract
	case StyleConclusion:
		return &o.Conclusion
	case StyleSectionTitle:
		return &o.SectionTitle
	case StyleSectionContent:
		return &o.SectionContent
	}
	panic(fmt.Sprintf("poster: invalid style target %q", t))
}

// IsZero reports whether there are no overrides at all.
func (o *StyleOverrides) IsZero() bool {
	if o == nil {
		return true
	}
	for _, t := range StyleTargets {
		if !o.Element(t).Empty() {
			return false
		}
	}
	return o.SlideBackground == nil
}

// Clone returns a deep copy. Present but empty element styles stay present.
func (o StyleOverrides) Clone() StyleOverrides {
	out := StyleOverrides{SlideBackground: cloneString(o.SlideBackground)}
	for _, t := range StyleTargets {
		*out.slot(t) = o.Element(t).Clone()
	}
	return out
}
