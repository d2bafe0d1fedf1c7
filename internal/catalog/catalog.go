// Package catalog provides the fixed vocabularies the medication form selects
// from: the ordered medication type list and the "when to take" options.
package catalog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// MedicationType is one selectable entry of the type list.
type MedicationType struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Catalog is the configuration data consumed by the form.
type Catalog struct {
	Types []MedicationType `yaml:"types" json:"types"`

	// WhenToTake belongs to the older screen variant that used a plain
	// string picker instead of a reminder time. Served read-only.
	WhenToTake []string `yaml:"when_to_take" json:"when_to_take"`
}

// Default returns the built-in vocabularies.
func Default() *Catalog {
	return &Catalog{
		Types: []MedicationType{
			{Name: "Tablet", Icon: "tablet"},
			{Name: "Capsule", Icon: "capsule"},
			{Name: "Drops", Icon: "drops"},
			{Name: "Syrup", Icon: "syrup"},
			{Name: "Injection", Icon: "injection"},
			{Name: "Inhaler", Icon: "inhaler"},
			{Name: "Cream", Icon: "cream"},
			{Name: "Other", Icon: "other"},
		},
		WhenToTake: []string{
			"Morning",
			"Afternoon",
			"Evening",
			"Before Sleeping",
			"Before Food",
			"After Food",
		},
	}
}

// Load reads a YAML catalog file. Sections missing from the file fall back to
// the defaults.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML catalog data.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	def := Default()
	if len(c.Types) == 0 {
		c.Types = def.Types
	}
	if len(c.WhenToTake) == 0 {
		c.WhenToTake = def.WhenToTake
	}

	seen := make(map[string]bool, len(c.Types))
	for _, t := range c.Types {
		key := strings.ToLower(strings.TrimSpace(t.Name))
		if key == "" {
			return nil, fmt.Errorf("catalog type with empty name")
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate catalog type %q", t.Name)
		}
		seen[key] = true
	}

	return &c, nil
}

// Lookup finds a type by name, case-insensitively.
func (c *Catalog) Lookup(name string) (MedicationType, bool) {
	name = strings.TrimSpace(name)
	for _, t := range c.Types {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return MedicationType{}, false
}

// Next returns the type after current in list order, wrapping around. A nil
// current yields the first type.
func (c *Catalog) Next(current *MedicationType) MedicationType {
	if len(c.Types) == 0 {
		return MedicationType{}
	}
	if current == nil {
		return c.Types[0]
	}
	for i, t := range c.Types {
		if t.Name == current.Name {
			return c.Types[(i+1)%len(c.Types)]
		}
	}
	return c.Types[0]
}

// Holder guards a catalog that may be swapped by a reload.
type Holder struct {
	mu  sync.RWMutex
	cat *Catalog
}

func NewHolder(c *Catalog) *Holder {
	if c == nil {
		c = Default()
	}
	return &Holder{cat: c}
}

func (h *Holder) Get() *Catalog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cat
}

func (h *Holder) Set(c *Catalog) {
	h.mu.Lock()
	h.cat = c
	h.mu.Unlock()
}
