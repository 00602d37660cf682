// Package taxonomy holds the ordered list of posting categories and the
// weighted keyword rules used to assign them.
package taxonomy // import "streamlance.app/internal/taxonomy"

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"go.yaml.in/yaml/v4"

	"streamlance.app/internal/config"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrDuplicateCategory = errors.New("taxonomy: duplicate category")

// Taxonomy is the classification configuration.
type Taxonomy struct {
	Fallback      string     `yaml:"fallback" validate:"required"`
	MinScore      int        `yaml:"min_score" validate:"min=0"`
	Weights       Weights    `yaml:"weights"`
	Disqualifiers []string   `yaml:"disqualifiers" validate:"dive,required"`
	Categories    []Category `yaml:"categories" validate:"min=1,dive"`
}

type Weights struct {
	Primary   int `yaml:"primary" validate:"min=0"`
	Secondary int `yaml:"secondary" validate:"min=0"`
	Skill     int `yaml:"skill" validate:"min=0"`
}

// Category is a label with its keyword lists. If any of Exclusions occurs in
// a text, the category never wins for that text.
type Category struct {
	Name       string   `yaml:"name" validate:"required,max=100"`
	Primary    []string `yaml:"primary" validate:"dive,required"`
	Secondary  []string `yaml:"secondary" validate:"dive,required"`
	Skills     []string `yaml:"skills" validate:"dive,required"`
	Exclusions []string `yaml:"exclusions" validate:"dive,required"`
}

var parseDefault = sync.OnceValues(func() (*Taxonomy, error) {
	return Parse(defaultYAML)
})

// Default returns the built-in taxonomy.
func Default() *Taxonomy {
	t, err := parseDefault()
	if err != nil {
		panic(err)
	}
	return t
}

// Load returns the built-in taxonomy if path is empty, or the taxonomy read
// from path.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return parseDefault()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %q: %w", path, err)
	}

	t, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: load %q: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates a YAML document.
func Parse(b []byte) (*Taxonomy, error) {
	t := new(Taxonomy)
	if err := yaml.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("taxonomy: decode yaml: %w", err)
	} else if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (self *Taxonomy) validate() error {
	if err := config.Validator().Struct(self); err != nil {
		return fmt.Errorf("taxonomy: failed validate: %w", err)
	}

	seen := make(map[string]struct{}, len(self.Categories)+1)
	seen[self.Fallback] = struct{}{}
	for i := range self.Categories {
		name := self.Categories[i].Name
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateCategory, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Names returns category names in declaration order, without the fallback.
func (self *Taxonomy) Names() []string {
	names := make([]string, len(self.Categories))
	for i := range self.Categories {
		names[i] = self.Categories[i].Name
	}
	return names
}

// Has returns true if name is a category or the fallback.
func (self *Taxonomy) Has(name string) bool {
	return name == self.Fallback || self.Selectable(name)
}

// Selectable returns true if users can subscribe to name.
func (self *Taxonomy) Selectable(name string) bool {
	return slices.ContainsFunc(self.Categories,
		func(c Category) bool { return c.Name == name })
}
