// Package catalog manages the saved model list: the models offered for
// benchmarking and the subset suitable as judges.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Model is one catalog entry. Judge marks models suitable for evaluation.
type Model struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Judge       bool   `yaml:"judge,omitempty"`
}

// Catalog is the loaded model list.
type Catalog struct {
	Models []Model `yaml:"models"`
}

// Defaults returns the built-in catalog used when no models file exists.
func Defaults() *Catalog {
	return &Catalog{Models: []Model{
		{ID: "xiaomi/mimo-v2-flash:free", Name: "Mimo v2 Flash", Description: "Free, fast Xiaomi model", Judge: true},
		{ID: "deepseek/deepseek-v3.2", Name: "Deepseek v3.2", Description: "High quality Deepseek model", Judge: true},
		{ID: "openai/gpt-4o-mini", Name: "GPT-4o Mini"},
		{ID: "anthropic/claude-3.5-haiku", Name: "Claude 3.5 Haiku"},
		{ID: "meta-llama/llama-3.3-70b-instruct", Name: "Llama 3.3 70B"},
		{ID: "google/gemini-2.0-flash-001", Name: "Gemini 2.0 Flash"},
	}}
}

// Load reads a catalog from a YAML file, falling back to the defaults
// when the file does not exist.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing models file %s: %w", path, err)
	}
	if len(c.Models) == 0 {
		return Defaults(), nil
	}
	return &c, nil
}

// Save writes the catalog to a YAML file.
func (c *Catalog) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Judges returns the models marked as judge candidates, in catalog order.
func (c *Catalog) Judges() []Model {
	var out []Model
	for _, m := range c.Models {
		if m.Judge {
			out = append(out, m)
		}
	}
	return out
}

// Find looks a model up by identifier or display name.
func (c *Catalog) Find(idOrName string) (Model, bool) {
	for _, m := range c.Models {
		if m.ID == idOrName || m.Name == idOrName {
			return m, true
		}
	}
	return Model{}, false
}

// Add appends a model, rejecting duplicate identifiers.
func (c *Catalog) Add(m Model) error {
	if _, ok := c.Find(m.ID); ok {
		return fmt.Errorf("model %s is already in the catalog", m.ID)
	}
	c.Models = append(c.Models, m)
	return nil
}
