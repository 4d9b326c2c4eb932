package theme

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/pelletier/go-toml/v2"
)

// DefaultKey is the theme a new poster starts with.
const DefaultKey = "default"

//go:embed themes.yaml
var builtin []byte

// Colors holds the palette of a theme.
type Colors struct {
	Background   string `json:"background" yaml:"background" toml:"background"`
	Title        string `json:"title" yaml:"title" toml:"title"`
	Subtitle     string `json:"subtitle" yaml:"subtitle" toml:"subtitle"`
	SectionTitle string `json:"section_title" yaml:"section_title" toml:"section_title"`
	Body         string `json:"body" yaml:"body" toml:"body"`
}

// Sizes holds the font sizes of a theme in points.
type Sizes struct {
	Title        int `json:"title" yaml:"title" toml:"title"`
	Subtitle     int `json:"subtitle" yaml:"subtitle" toml:"subtitle"`
	SectionTitle int `json:"section_title" yaml:"section_title" toml:"section_title"`
	Body         int `json:"body" yaml:"body" toml:"body"`
}

// Theme is a named visual preset.
type Theme struct {
	Key         string `json:"key" yaml:"key" toml:"key"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Description string `json:"description,omitempty" yaml:"description" toml:"description"`
	Colors      Colors `json:"colors" yaml:"colors" toml:"colors"`
	FontFamily  string `json:"font_family" yaml:"font_family" toml:"font_family"`
	Sizes       Sizes  `json:"sizes" yaml:"sizes" toml:"sizes"`
}

// Registry holds the themes the poster service knows about.
type Registry struct {
	mu     sync.RWMutex
	themes map[string]Theme
	order  []string
}

// NewRegistry returns a registry seeded with the built-in themes.
func NewRegistry() (*Registry, error) {
	var themes []Theme
	if err := yaml.Unmarshal(builtin, &themes); err != nil {
		return nil, fmt.Errorf("parse built-in themes: %w", err)
	}
	r := &Registry{themes: make(map[string]Theme)}
	for _, t := range themes {
		r.put(t)
	}
	return r, nil
}

// Load returns the built-in registry merged with the themes in path.
// An empty path loads the built-ins only.
func Load(path string) (*Registry, error) {
	r, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return r, nil
	}
	if err := r.LoadFile(path); err != nil {
		return nil, err
	}
	return r, nil
}

type tomlFile struct {
	Themes []Theme `toml:"themes"`
}

// LoadFile merges themes from a YAML or TOML file. Entries with an existing
// key replace the built-in definition.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read themes file: %w", err)
	}

	var themes []Theme
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &themes); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		var f tomlFile
		if err := toml.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		themes = f.Themes
	default:
		return fmt.Errorf("unsupported themes file %q: want .yaml, .yml or .toml", path)
	}

	for i, t := range themes {
		if t.Key == "" {
			return fmt.Errorf("parse %s: theme %d has no key", path, i)
		}
	}
	for _, t := range themes {
		r.put(t)
	}
	return nil
}

func (r *Registry) put(t Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.themes[t.Key]; !ok {
		r.order = append(r.order, t.Key)
	}
	if t.Name == "" {
		t.Name = t.Key
	}
	r.themes[t.Key] = t
}

// Get returns the theme with key.
func (r *Registry) Get(key string) (Theme, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.themes[key]
	return t, ok
}

// Has reports whether key names a known theme.
func (r *Registry) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// List returns every theme in definition order.
func (r *Registry) List() []Theme {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Theme, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.themes[k])
	}
	return out
}

// Effective is the resolved style of one element after overrides.
type Effective struct {
	FontSize   int    `json:"font_size"`
	Color      string `json:"color"`
	FontFamily string `json:"font_family"`
}

// Resolved is the full effective look of a poster.
type Resolved struct {
	Theme      string                          `json:"theme"`
	Background string                          `json:"background"`
	Elements   map[poster.StyleTarget]Effective `json:"elements"`
}

// Resolve applies overrides on top of the theme with key, falling back to
// the default theme when key is unknown.
func (r *Registry) Resolve(key string, overrides *poster.StyleOverrides) Resolved {
	t, ok := r.Get(key)
	if !ok {
		t, _ = r.Get(DefaultKey)
	}

	base := map[poster.StyleTarget]Effective{
		poster.StyleTitle:          {FontSize: t.Sizes.Title, Color: t.Colors.Title, FontFamily: t.FontFamily},
		poster.StyleAbstract:       {FontSize: t.Sizes.Subtitle, Color: t.Colors.Subtitle, FontFamily: t.FontFamily},
		poster.StyleConclusion:     {FontSize: t.Sizes.Body, Color: t.Colors.Body, FontFamily: t.FontFamily},
		poster.StyleSectionTitle:   {FontSize: t.Sizes.SectionTitle, Color: t.Colors.SectionTitle, FontFamily: t.FontFamily},
		poster.StyleSectionContent: {FontSize: t.Sizes.Body, Color: t.Colors.Body, FontFamily: t.FontFamily},
	}

	out := Resolved{Theme: t.Key, Background: t.Colors.Background, Elements: base}
	if overrides == nil {
		return out
	}
	if overrides.SlideBackground != nil {
		out.Background = *overrides.SlideBackground
	}
	for target, eff := range base {
		e := overrides.Element(target)
		if e == nil {
			continue
		}
		if e.FontSize != nil {
			eff.FontSize = *e.FontSize
		}
		if e.Color != nil {
			eff.Color = *e.Color
		}
		if e.FontFamily != nil {
			eff.FontFamily = *e.FontFamily
		}
		out.Elements[target] = eff
	}
	return out
}
