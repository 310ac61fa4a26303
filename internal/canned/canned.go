// Package canned holds the librarian quick-reply catalog shown on the dashboard.
package canned

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/harunnryd/libradesk/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

type Template struct {
	Name string `yaml:"name" json:"name"`
	Text string `yaml:"text" json:"text"`
}

type Category struct {
	Name      string     `yaml:"name" json:"name"`
	Icon      string     `yaml:"icon" json:"icon"`
	Templates []Template `yaml:"templates" json:"templates"`
}

type Catalog struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path. An empty path or a missing file falls back
// to the built-in catalog; a file that exists but does not parse is an error.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Info("Canned response file not found, using built-in catalog", "path", path)
		return Default()
	}
	if err != nil {
		return nil, fmt.Errorf("read canned responses: %w", err)
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, errors.WrapWithCategory(err, "parse canned responses", errors.ErrInvalidInput)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	if cat.Categories == nil {
		cat.Categories = []Category{}
	}
	return &cat, nil
}

func (c *Catalog) validate() error {
	for i, category := range c.Categories {
		if strings.TrimSpace(category.Name) == "" {
			return errors.InvalidInput(fmt.Sprintf("canned category %d has no name", i))
		}
		for j, tpl := range category.Templates {
			if strings.TrimSpace(tpl.Text) == "" {
				return errors.InvalidInput(fmt.Sprintf("canned template %s/%d has no text", category.Name, j))
			}
		}
		if c.Categories[i].Templates == nil {
			c.Categories[i].Templates = []Template{}
		}
	}
	return nil
}
