package theme

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinThemes(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	keys := make([]string, 0)
	for _, th := range r.List() {
		keys = append(keys, th.Key)
	}
	assert.Equal(t, []string{"default", "professional_blue", "creative_warm", "minimalist_dark"}, keys)

	dark, ok := r.Get("minimalist_dark")
	require.True(t, ok)
	assert.Equal(t, "#1E1E1E", dark.Colors.Background)
	assert.Equal(t, 40, dark.Sizes.Title)
	assert.False(t, r.Has("neon"))
}

func TestLoadFileYAMLAndTOML(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "themes.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
- key: neon
  name: Neon
  colors:
    background: "#000000"
    title: "#39FF14"
`), 0o644))

	tomlPath := filepath.Join(dir, "themes.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[[themes]]
key = "default"
name = "Default (custom)"
font_family = "Arial"
`), 0o644))

	r, err := Load(yamlPath)
	require.NoError(t, err)
	require.NoError(t, r.LoadFile(tomlPath))

	neon, ok := r.Get("neon")
	require.True(t, ok)
	assert.Equal(t, "#39FF14", neon.Colors.Title)

	def, _ := r.Get("default")
	assert.Equal(t, "Arial", def.FontFamily)
	assert.Len(t, r.List(), 5)
	assert.Equal(t, "neon", r.List()[4].Key)
}

func TestLoadFileRejects(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry()
	require.NoError(t, err)

	bad := filepath.Join(dir, "themes.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[]`), 0o644))
	assert.Error(t, r.LoadFile(bad))

	nokey := filepath.Join(dir, "themes.yml")
	require.NoError(t, os.WriteFile(nokey, []byte("- name: Nameless\n"), 0o644))
	assert.Error(t, r.LoadFile(nokey))

	assert.Error(t, r.LoadFile(filepath.Join(dir, "missing.yaml")))
}

func TestResolve(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	size := 20
	color := "#FF0000"
	bg := "#ABCDEF"
	overrides := &poster.StyleOverrides{
		SectionContent:  &poster.ElementStyle{FontSize: &size},
		Title:           &poster.ElementStyle{Color: &color},
		SlideBackground: &bg,
	}

	got := r.Resolve("professional_blue", overrides)
	assert.Equal(t, "professional_blue", got.Theme)
	assert.Equal(t, "#ABCDEF", got.Background)
	assert.Equal(t, "#FF0000", got.Elements[poster.StyleTitle].Color)
	assert.Equal(t, 40, got.Elements[poster.StyleTitle].FontSize)
	assert.Equal(t, 20, got.Elements[poster.StyleSectionContent].FontSize)
	assert.Equal(t, "#222222", got.Elements[poster.StyleSectionContent].Color)

	fallback := r.Resolve("unknown", nil)
	assert.Equal(t, "default", fallback.Theme)
	assert.Equal(t, "#FFFFFF", fallback.Background)
}
