package poster

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	size := 28
	return &Document{
		PosterID:      "p1",
		Title:         "AI",
		Abstract:      StringPtr("About AI"),
		Sections:      []Section{{SectionID: "s1", Title: "Intro", Content: "Hello", ImageURLs: []string{"/img/a.png"}}},
		SelectedTheme: "default",
		StyleOverrides: &StyleOverrides{
			Title: &ElementStyle{FontSize: &size},
		},
		PreviewStatus: PreviewPending,
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := sampleDocument()
	cp := doc.Clone()
	require.Equal(t, doc, cp)

	cp.Sections[0].ImageURLs[0] = "changed"
	*cp.Abstract = "changed"
	*cp.StyleOverrides.Title.FontSize = 99

	assert.Equal(t, "/img/a.png", doc.Sections[0].ImageURLs[0])
	assert.Equal(t, "About AI", *doc.Abstract)
	assert.Equal(t, 28, *doc.StyleOverrides.Title.FontSize)
}

func TestDecodeServicePayload(t *testing.T) {
	payload := `{
		"poster_id": "p1",
		"title": "AI",
		"abstract": null,
		"sections": [{"section_id": "s1", "section_title": "Intro", "section_content": "Hi", "image_urls": []}],
		"selected_theme": "professional_blue",
		"style_overrides": {"section_title": {"color": "#FF0000"}, "slide_background": "#000000"},
		"preview_status": "generating",
		"preview_last_error": null
	}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(payload), &doc))

	assert.Equal(t, "AI", doc.Title)
	assert.Nil(t, doc.Abstract)
	assert.Equal(t, PreviewGenerating, doc.PreviewStatus)
	assert.True(t, doc.PreviewStatus.Unsettled())
	require.NotNil(t, doc.StyleOverrides)
	assert.Equal(t, "#FF0000", *doc.StyleOverrides.SectionTitle.Color)
	assert.Equal(t, "#000000", *doc.StyleOverrides.SlideBackground)
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		ref     string
		want    Target
		wantErr bool
	}{
		{ref: "poster_title", want: Target{Kind: KindTitle}},
		{ref: "poster_abstract", want: Target{Kind: KindAbstract}},
		{ref: "poster_conclusion", want: Target{Kind: KindConclusion}},
		{ref: "section_3_content", want: Target{Kind: KindSectionContent, SectionID: "3"}},
		{ref: "section_ab12_title", want: Target{Kind: KindSectionTitle, SectionID: "ab12"}},
		{ref: "section__title", wantErr: true},
		{ref: "title", wantErr: true},
		{ref: "section_3_footer", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParseTarget(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ref, got.String())
		})
	}
}

func TestDocumentValue(t *testing.T) {
	doc := sampleDocument()

	v, ok := doc.Value(TargetTitle)
	assert.True(t, ok)
	assert.Equal(t, "AI", v)

	v, ok = doc.Value(TargetConclusion)
	assert.True(t, ok)
	assert.Empty(t, v)

	v, ok = doc.Value(SectionContentRef("s1"))
	assert.True(t, ok)
	assert.Equal(t, "Hello", v)

	_, ok = doc.Value(SectionContentRef("missing"))
	assert.False(t, ok)
}

func TestStyleOverridesSparse(t *testing.T) {
	var o StyleOverrides
	assert.True(t, o.IsZero())

	o.SetElement(StyleSectionContent, &ElementStyle{})
	assert.Nil(t, o.SectionContent, "empty styles are stored as absent")

	color := "#112233"
	o.SetElement(StyleSectionContent, &ElementStyle{Color: &color})
	assert.False(t, o.IsZero())

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"section_content":{"color":"#112233"}}`, string(data))
}

func TestBackgroundTargetIsWireKey(t *testing.T) {
	data, err := json.Marshal(StyleOverrides{SlideBackground: StringPtr("#000000")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"`+BackgroundTarget+`":"#000000"}`, string(data))
	for _, target := range StyleTargets {
		assert.NotEqual(t, BackgroundTarget, string(target))
	}
}

func TestCloneKeepsEmptyCollections(t *testing.T) {
	doc := &Document{
		Sections:       []Section{{SectionID: "s1", ImageURLs: []string{}}},
		StyleOverrides: &StyleOverrides{Title: &ElementStyle{}},
	}
	cp := doc.Clone()
	require.Equal(t, doc, cp)
	assert.NotNil(t, cp.Sections[0].ImageURLs)
	require.NotNil(t, cp.StyleOverrides.Title)
	assert.NotSame(t, doc.StyleOverrides.Title, cp.StyleOverrides.Title)

	empty := (&Document{Sections: []Section{}}).Clone()
	assert.NotNil(t, empty.Sections)
}
