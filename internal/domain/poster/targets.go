package poster

import (
	"fmt"
	"strings"
)

// Element target references understood by the poster service.
const (
	TargetTitle      = "poster_title"
	TargetAbstract   = "poster_abstract"
	TargetConclusion = "poster_conclusion"

	sectionPrefix = "section_"
)

// TargetKind is the document field a target reference points at.
type TargetKind int

const (
	KindTitle TargetKind = iota
	KindAbstract
	KindConclusion
	KindSectionTitle
	KindSectionContent
)

// Target is a parsed element reference.
type Target struct {
	Kind      TargetKind
	SectionID string
}

// SectionTitleRef formats the reference for a section's title.
func SectionTitleRef(sectionID string) string {
	return sectionPrefix + sectionID + "_title"
}

// SectionContentRef formats the reference for a section's body.
func SectionContentRef(sectionID string) string {
	return sectionPrefix + sectionID + "_content"
}

// ParseTarget parses "poster_title", "section_<id>_content" and friends.
func ParseTarget(ref string) (Target, error) {
	switch ref {
	case TargetTitle:
		return Target{Kind: KindTitle}, nil
	case TargetAbstract:
		return Target{Kind: KindAbstract}, nil
	case TargetConclusion:
		return Target{Kind: KindConclusion}, nil
	}

	if rest, ok := strings.CutPrefix(ref, sectionPrefix); ok {
		if id, ok := strings.CutSuffix(rest, "_title"); ok && id != "" {
			return Target{Kind: KindSectionTitle, SectionID: id}, nil
		}
		if id, ok := strings.CutSuffix(rest, "_content"); ok && id != "" {
			return Target{Kind: KindSectionContent, SectionID: id}, nil
		}
	}
	return Target{}, fmt.Errorf("invalid element reference %q", ref)
}

// String formats the target back to its wire reference.
func (t Target) String() string {
	switch t.Kind {
	case KindTitle:
		return TargetTitle
	case KindAbstract:
		return TargetAbstract
	case KindConclusion:
		return TargetConclusion
	case KindSectionTitle:
		return SectionTitleRef(t.SectionID)
	case KindSectionContent:
		return SectionContentRef(t.SectionID)
	}
	return ""
}

// Value returns the current text at ref in d.
// The second result is false when the reference does not resolve.
func (d *Document) Value(ref string) (string, bool) {
	if d == nil {
		return "", false
	}
	t, err := ParseTarget(ref)
	if err != nil {
		return "", false
	}
	switch t.Kind {
	case KindTitle:
		return d.Title, true
	case KindAbstract:
		return deref(d.Abstract), true
	case KindConclusion:
		return deref(d.Conclusion), true
	}
	s, ok := d.Section(t.SectionID)
	if !ok {
		return "", false
	}
	if t.Kind == KindSectionTitle {
		return s.Title, true
	}
	return s.Content, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
