package wizard

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = mustLoadCatalog(catalogYAML)

// Option is one selectable answer of a single-choice-list step.
type Option struct {
	ID    string `yaml:"id" json:"id"`
	Emoji string `yaml:"emoji" json:"emoji"`
	Label string `yaml:"label" json:"label"`
}

// Catalog lists the options offered by every question step.
type Catalog struct {
	Moods        []Option `yaml:"moods" json:"moods"`
	Flavors      []Option `yaml:"flavors" json:"flavors"`
	Temperatures []Option `yaml:"temperatures" json:"temperatures"`
	Textures     []Option `yaml:"textures" json:"textures"`
	Protocols    []string `yaml:"protocols" json:"protocols"`
	Allergies    []string `yaml:"allergies" json:"allergies"`
}

// DefaultCatalog returns the embedded option catalogue.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// LoadCatalog parses a YAML catalogue.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Moods) == 0 || len(c.Flavors) == 0 || len(c.Temperatures) == 0 || len(c.Textures) == 0 {
		return nil, fmt.Errorf("catalog must define moods, flavors, temperatures and textures")
	}
	return &c, nil
}

func mustLoadCatalog(data []byte) *Catalog {
	c, err := LoadCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Options returns the enumerated options of f, or nil for free-form fields.
func (c *Catalog) Options(f Field) []Option {
	switch f {
	case FieldMood:
		return c.Moods
	case FieldFlavor:
		return c.Flavors
	case FieldTemperature:
		return c.Temperatures
	case FieldTexture:
		return c.Textures
	}
	return nil
}

// Suggested returns the default choices for the free-form fields.
func (c *Catalog) Suggested(f Field) []string {
	switch f {
	case FieldProtocols:
		return c.Protocols
	case FieldAllergies:
		return c.Allergies
	}
	return nil
}

// Accepts reports whether value is a legal answer for f.
func (c *Catalog) Accepts(f Field, value string) bool {
	if value == "" {
		return false
	}
	if !f.Enumerated() {
		return true
	}
	return slices.ContainsFunc(c.Options(f), func(o Option) bool { return o.ID == value })
}
